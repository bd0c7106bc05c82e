package panel

import (
	"fmt"

	"github.com/srg/gattpanel/internal/device"
)

// Status is the connection status shown by the panel.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is the transient panel state. It is only changed through Reduce.
type State struct {
	Status  Status
	Hint    *string
	Info    *device.ServiceInfo
	Attempt int
}

func (s State) Connecting() bool { return s.Status == StatusConnecting }
func (s State) Connected() bool  { return s.Status == StatusConnected }

// HintText returns the hint or "" when none is set.
func (s State) HintText() string {
	if s.Hint == nil {
		return ""
	}
	return *s.Hint
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// AttemptStarted begins a new connection attempt.
type AttemptStarted struct {
	Hint string
}

// StageStarted marks the start of a pipeline stage. An empty Hint keeps the current one.
type StageStarted struct {
	Attempt int
	Stage   string
	Hint    string
}

// StageSucceeded marks a finished stage. Info, when set, replaces the stored
// service info; Done completes the attempt.
type StageSucceeded struct {
	Attempt int
	Stage   string
	Info    *device.ServiceInfo
	Done    bool
}

// StageFailed ends the attempt with an error hint.
type StageFailed struct {
	Attempt int
	Stage   string
	Hint    string
}

// Reset returns the panel to idle, dropping any service info.
type Reset struct {
	Hint string
}

func (AttemptStarted) isEvent() {}
func (StageStarted) isEvent()   {}
func (StageSucceeded) isEvent() {}
func (StageFailed) isEvent()    {}
func (Reset) isEvent()          {}

// Reduce applies ev to s and returns the next state. The input state is never modified.
func Reduce(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case AttemptStarted:
		if s.Connecting() {
			return s, ErrAttemptInFlight
		}
		return State{
			Status:  StatusConnecting,
			Hint:    optionalHint(e.Hint),
			Attempt: s.Attempt + 1,
		}, nil

	case StageStarted:
		if err := checkAttempt(s, e.Attempt); err != nil {
			return s, err
		}
		if e.Hint != "" {
			s.Hint = optionalHint(e.Hint)
		}
		return s, nil

	case StageSucceeded:
		if err := checkAttempt(s, e.Attempt); err != nil {
			return s, err
		}
		if e.Info != nil {
			s.Info = e.Info
		}
		if e.Done {
			s.Status = StatusConnected
			s.Hint = nil
		}
		return s, nil

	case StageFailed:
		if err := checkAttempt(s, e.Attempt); err != nil {
			return s, err
		}
		return State{
			Status:  StatusFailed,
			Hint:    optionalHint(e.Hint),
			Attempt: s.Attempt,
		}, nil

	case Reset:
		return State{
			Status:  StatusIdle,
			Hint:    optionalHint(e.Hint),
			Attempt: s.Attempt,
		}, nil

	default:
		return s, fmt.Errorf("unsupported event %T", ev)
	}
}

func checkAttempt(s State, attempt int) error {
	if attempt != s.Attempt {
		return fmt.Errorf("%w: attempt %d, current %d", ErrStaleAttempt, attempt, s.Attempt)
	}
	if !s.Connecting() {
		return ErrNoAttempt
	}
	return nil
}

func optionalHint(h string) *string {
	if h == "" {
		return nil
	}
	return &h
}
