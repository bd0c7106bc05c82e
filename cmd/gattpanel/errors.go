package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/panel"
)

// Command-level errors
var (
	ErrNotATerminal = errors.New("the panel needs an interactive terminal; use 'gattpanel dump' for scripted output")
)

// FormatUserError turns err into a one-line message for the terminal.
func FormatUserError(err error) string {
	var stageErr *panel.StageError
	var notFound *device.NotFoundError

	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off; enable it and try again"
	case errors.Is(err, device.ErrUnsupported):
		return "BLE is not supported on this platform"
	case errors.Is(err, context.DeadlineExceeded):
		if errors.As(err, &stageErr) {
			return fmt.Sprintf("%s timed out", stageErr.Stage)
		}
		return "operation timed out"
	case errors.As(err, &notFound):
		return fmt.Sprintf("%v; is the peripheral in range and paired?", notFound)
	case errors.As(err, &stageErr):
		return fmt.Sprintf("%s failed: %v", stageErr.Stage, stageErr.Err)
	default:
		return err.Error()
	}
}
