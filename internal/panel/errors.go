package panel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/srg/gattpanel/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrAttemptInFlight = errors.New("connection attempt already in progress")
	ErrNoAttempt       = errors.New("no connection attempt in progress")
	ErrStaleAttempt    = errors.New("event belongs to a superseded attempt")
	ErrShapeMismatch   = errors.New("service info shape does not match the stack")
	ErrUnknownShape    = errors.New("unknown service shape")
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// SerializeError renders err as a single-line JSON object for display.
// Errors that implement json.Marshaler serialize themselves; anything else
// becomes {"message": ...} plus the failed stage and connection state when known.
func SerializeError(err error) string {
	if err == nil {
		return "null"
	}

	if m, ok := err.(json.Marshaler); ok {
		if data, mErr := m.MarshalJSON(); mErr == nil && json.Valid(data) {
			return string(data)
		}
	}

	obj := orderedmap.New[string, string]()
	obj.Set("message", err.Error())

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		if stageErr.Err != nil {
			obj.Set("message", stageErr.Err.Error())
		}
		obj.Set("stage", stageErr.Stage)
	}

	var connErr *device.ConnectionError
	if errors.As(err, &connErr) {
		obj.Set("state", string(connErr.State))
	}

	data, mErr := json.Marshal(obj)
	if mErr != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return string(data)
}
