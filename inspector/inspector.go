// Package inspector runs a one-shot, non-interactive panel session: connect,
// retrieve services, hand the result to a callback, disconnect.
package inspector

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/panel"
)

const (
	PhaseConnecting         = "Connecting"
	PhaseRetrievingServices = "Retrieving services"
	PhaseProcessing         = "Processing results"
	PhaseFailed             = "Failed"
)

// ProgressCallback is called when the inspection phase changes
type ProgressCallback func(phase string)

// InspectCallback processes the discovered services and produces output of type R
type InspectCallback[R any] func(p *panel.Panel, info *device.ServiceInfo) (R, error)

// Inspect connects to the peripheral through a panel and runs callback with
// the discovered services. The peripheral is disconnected afterwards whether
// or not the callback succeeds.
func Inspect[R any](ctx context.Context, peripheral device.Peripheral, stack device.Stack, sink panel.ErrorSink,
	logger *logrus.Logger, progress ProgressCallback, callback InspectCallback[R]) (R, error) {
	var zero R
	if logger == nil {
		logger = logrus.New()
	}
	if progress == nil {
		progress = func(string) {}
	}

	p := panel.New(peripheral, stack, sink,
		panel.WithLogger(logger),
		panel.WithOnChange(func(st panel.State) {
			if st.Connecting() && st.HintText() == panel.HintRetrievingServices {
				progress(PhaseRetrievingServices)
			}
		}),
	)

	progress(PhaseConnecting)
	if err := p.Show(ctx); err != nil {
		progress(PhaseFailed)
		return zero, err
	}

	defer p.DisconnectAndClose(context.WithoutCancel(ctx), nil)

	progress(PhaseProcessing)
	return callback(p, p.State().Info)
}
