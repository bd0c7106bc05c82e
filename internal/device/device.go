// Package device holds the BLE domain types shared by the panel and the stack
// backends: the peripheral identity, the discovered service info in its two
// shapes, the Stack interface and the typed connection errors.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a BLE resource is not found
type NotFoundError struct {
	Resource string   // "device", "service", "characteristic"
	IDs      []string // One or more identifiers, outermost first
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.IDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.IDs[0])
	}
	return fmt.Sprintf("%s %q not found in %q", e.Resource, e.IDs[len(e.IDs)-1], e.IDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
)

var (
	// ErrUnsupported is returned when a backend cannot run on the host platform.
	ErrUnsupported = errors.New("unsupported")
	// ErrBluetoothOff is returned when the host adapter is powered off.
	ErrBluetoothOff = errors.New("bluetooth is turned off")
)

// NormalizeError maps known backend error strings to structured ConnectionError types.
// go-ble and BlueZ report the same conditions with different wording; the original
// error is kept in the chain.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "bluetooth is turned off"),
		containsIgnoreCase(msg, "org.bluez.Error.NotReady"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "device not connected"),
		containsIgnoreCase(msg, "org.bluez.Error.NotConnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "device already connected"),
		containsIgnoreCase(msg, "org.bluez.Error.AlreadyConnected"):
		return fmt.Errorf("%w: %v", ErrAlreadyConnected, err)
	case containsIgnoreCase(msg, "connection is not initialized"):
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	default:
		return err
	}
}

// containsIgnoreCase checks substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// Peripheral identifies the remote device a panel talks to.
// It is supplied by the caller and never modified.
type Peripheral struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// DisplayName returns the peripheral name, or "N/A" when the device did not advertise one.
func (p Peripheral) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return "N/A"
	}
	return p.Name
}

// Stack is the external BLE stack the panel delegates to.
// Every call is a single-shot request; implementations do not retry.
type Stack interface {
	Connect(ctx context.Context, id string) error
	RetrieveServices(ctx context.Context, id string) (*ServiceInfo, error)
	Disconnect(ctx context.Context, id string) error

	// Shape reports which ServiceInfo variant RetrieveServices produces.
	Shape() ServiceShape
}
