// Package devicefactory picks the BLE stack implementation for the host.
package devicefactory

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/device/bluez"
	goble "github.com/srg/gattpanel/internal/device/go-ble"
)

const (
	BackendAuto  = "auto"
	BackendGoBLE = "go-ble"
	BackendBlueZ = "bluez"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendAuto, BackendGoBLE, BackendBlueZ}

// Options selects and configures a backend.
type Options struct {
	Backend        string
	Adapter        string
	ConnectTimeout time.Duration
}

// StackFactory creates the device.Stack for the given options.
// This is a variable so that it can be overridden in tests.
var StackFactory = func(opts Options, logger *logrus.Logger) (device.Stack, error) {
	switch ResolveBackend(opts.Backend, runtime.GOOS) {
	case BackendGoBLE:
		return goble.NewStack(
			goble.WithConnectTimeout(opts.ConnectTimeout),
			goble.WithLogger(logger),
		), nil
	case BackendBlueZ:
		stack, err := bluez.NewSystemStack(
			bluez.WithAdapter(opts.Adapter),
			bluez.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return stack, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (expected one of: %s)", opts.Backend, strings.Join(Backends, ", "))
	}
}

// ResolveBackend maps "auto" (or an empty name) to the platform default:
// BlueZ on linux, go-ble elsewhere. Other names are returned lowercased.
func ResolveBackend(name, goos string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == BackendAuto {
		if goos == "linux" {
			return BackendBlueZ
		}
		return BackendGoBLE
	}
	return name
}
