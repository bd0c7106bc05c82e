// Package panel drives the connection lifecycle of a single BLE peripheral:
// connect, retrieve its GATT services, and disconnect on request. All real BLE
// work is delegated to a device.Stack; the panel only tracks transient state
// and reshapes the discovered services for display.
package panel

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/gattpanel/internal/device"
)

const (
	HintConnecting         = "Connecting..."
	HintRetrievingServices = "Retrieving GATT services..."
	HintNotConnected       = "Not connected"

	// ErrorHintPrefix precedes the serialized error in a failure hint.
	ErrorHintPrefix = "Err: "

	CategoryConnect    = "BLE Connect"
	CategoryDisconnect = "BLE Disconnect"

	LabelConnect            = "Connect"
	LabelDisconnectAndClose = "Disconnect & Close"
	LabelClose              = "Close"
)

// ErrorSink receives errors worth surfacing application-wide.
type ErrorSink interface {
	PutError(category string, err error)
}

type discardSink struct{}

func (discardSink) PutError(string, error) {}

// Panel is the connection panel for one peripheral. It is safe for concurrent use.
type Panel struct {
	peripheral device.Peripheral
	stack      device.Stack
	sink       ErrorSink
	logger     *logrus.Logger
	onChange   func(State)

	mu            sync.Mutex
	state         State
	cancel        context.CancelFunc
	cancelAttempt int
	shown         bool
}

// Option configures a Panel.
type Option func(*Panel)

func WithLogger(logger *logrus.Logger) Option {
	return func(p *Panel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOnChange registers a callback invoked after every state transition.
// It runs on the goroutine that caused the transition, without the panel lock held.
func WithOnChange(fn func(State)) Option {
	return func(p *Panel) {
		p.onChange = fn
	}
}

// New creates an idle panel. A nil sink discards reported errors.
func New(peripheral device.Peripheral, stack device.Stack, sink ErrorSink, opts ...Option) *Panel {
	if sink == nil {
		sink = discardSink{}
	}
	p := &Panel{
		peripheral: peripheral,
		stack:      stack,
		sink:       sink,
		logger:     logrus.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Panel) Peripheral() device.Peripheral {
	return p.peripheral
}

// State returns a snapshot of the current state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Services normalizes the service info of the current state.
func (p *Panel) Services() ([]NormalizedService, error) {
	return Normalize(p.State().Info, p.stack.Shape())
}

// PrimaryLabel is the label of the primary action for the current state.
func (p *Panel) PrimaryLabel() string {
	st := p.State()
	if st.Connecting() || st.Connected() {
		return LabelDisconnectAndClose
	}
	return LabelConnect
}

// Show starts the first connection attempt. Later calls do nothing.
func (p *Panel) Show(ctx context.Context) error {
	p.mu.Lock()
	if p.shown {
		p.mu.Unlock()
		return nil
	}
	p.shown = true
	p.mu.Unlock()

	return p.Connect(ctx)
}

// PrimaryAction disconnects and closes while connecting or connected, and
// starts a new attempt otherwise.
func (p *Panel) PrimaryAction(ctx context.Context, onClose func()) error {
	// The snapshot may be stale by the time Connect runs; Reduce rejects a
	// second attempt with ErrAttemptInFlight.
	st := p.State()
	if st.Connecting() || st.Connected() {
		p.DisconnectAndClose(ctx, onClose)
		return nil
	}
	return p.Connect(ctx)
}

// apply runs ev through Reduce and stores the result.
func (p *Panel) apply(ev Event) (State, error) {
	p.mu.Lock()
	next, err := Reduce(p.state, ev)
	if err == nil {
		p.state = next
	}
	p.mu.Unlock()

	if err == nil && p.onChange != nil {
		p.onChange(next)
	}
	return next, err
}

// Connect runs a connection attempt: connect, then retrieve services.
// It blocks until the attempt ends and returns a *StageError on failure,
// or ErrAttemptInFlight when another attempt is still running.
func (p *Panel) Connect(ctx context.Context) error {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	next, err := Reduce(p.state, AttemptStarted{Hint: HintConnecting})
	if err != nil {
		p.mu.Unlock()
		p.logger.WithField("address", p.peripheral.ID).Debug("Connect ignored: attempt already in progress")
		return err
	}
	p.state = next
	p.cancel = cancel
	p.cancelAttempt = next.Attempt
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(next)
	}

	attempt := next.Attempt
	defer p.releaseCancel(attempt)

	log := p.logger.WithFields(logrus.Fields{
		"address": p.peripheral.ID,
		"attempt": attempt,
	})
	log.Info("Connecting...")

	var info *device.ServiceInfo
	for i, st := range connectPipeline {
		if _, err := p.apply(StageStarted{Attempt: attempt, Stage: st.name, Hint: st.hint}); err != nil {
			log.WithField("error", err).Debug("Stage start rejected")
		}

		log.WithField("stage", st.name).Debug("Running stage")
		stageInfo, err := st.run(attemptCtx, p.stack, p.peripheral.ID)
		if err == nil && attemptCtx.Err() != nil {
			err = attemptCtx.Err()
		}
		if err != nil {
			return p.fail(ctx, attemptCtx, attempt, st.name, err)
		}

		if stageInfo != nil {
			info = stageInfo
		}
		done := i == len(connectPipeline)-1
		if _, err := p.apply(StageSucceeded{Attempt: attempt, Stage: st.name, Info: stageInfo, Done: done}); err != nil {
			log.WithField("error", err).Debug("Stage result rejected")
		}
	}

	log.WithField("services", info.ServiceCount()).Info("Connected")
	return nil
}

func (p *Panel) fail(ctx, attemptCtx context.Context, attempt int, stageName string, cause error) error {
	stageErr := &StageError{Stage: stageName, Err: cause}
	log := p.logger.WithFields(logrus.Fields{
		"address": p.peripheral.ID,
		"attempt": attempt,
		"stage":   stageName,
		"error":   cause,
	})

	cancelled := attemptCtx.Err() != nil && errors.Is(cause, context.Canceled)
	if cancelled {
		log.Info("Connection attempt cancelled")
	} else {
		log.Error("Connection attempt failed")
		p.sink.PutError(CategoryConnect, cause)
	}

	if _, err := p.apply(StageFailed{
		Attempt: attempt,
		Stage:   stageName,
		Hint:    ErrorHintPrefix + SerializeError(stageErr),
	}); err != nil {
		log.WithField("reason", err).Debug("Failure not recorded")
	}

	// best effort: the stack may hold a half-open link
	if err := p.stack.Disconnect(context.WithoutCancel(ctx), p.peripheral.ID); err != nil {
		log.WithField("disconnect_error", err).Warn("Failed to disconnect after failed attempt")
	}
	return stageErr
}

func (p *Panel) releaseCancel(attempt int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelAttempt == attempt {
		p.cancel = nil
	}
}

// cancelInFlight cancels the running attempt, if any.
func (p *Panel) cancelInFlight() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		p.logger.WithField("address", p.peripheral.ID).Debug("Cancelling in-flight connection attempt")
		cancel()
	}
}

// DisconnectAndClose cancels any running attempt, resets the panel, disconnects
// the peripheral and then calls onClose exactly once. A disconnect failure is
// reported to the error sink and never prevents closing.
func (p *Panel) DisconnectAndClose(ctx context.Context, onClose func()) {
	p.cancelInFlight()
	if _, err := p.apply(Reset{Hint: HintNotConnected}); err != nil {
		p.logger.WithField("error", err).Debug("Reset rejected")
	}

	if err := p.stack.Disconnect(ctx, p.peripheral.ID); err != nil {
		p.logger.WithFields(logrus.Fields{
			"address": p.peripheral.ID,
			"error":   err,
		}).Error("Failed to disconnect")
		p.sink.PutError(CategoryDisconnect, err)
	}

	if onClose != nil {
		onClose()
	}
}

// Close dismisses the panel without touching the connection. A running
// attempt is cancelled.
func (p *Panel) Close(onClose func()) {
	p.cancelInFlight()
	if onClose != nil {
		onClose()
	}
}
