package goble

import (
	"fmt"
	"strings"

	"github.com/srg/gattpanel/internal/device"
)

// NormalizeError maps go-ble specific error strings to structured device errors
// and falls back to device.NormalizeError for the wording shared with other stacks.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case strings.Contains(strings.ToLower(msg), "disconnected"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	default:
		return device.NormalizeError(err)
	}
}
