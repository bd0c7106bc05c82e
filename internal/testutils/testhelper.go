package testutils

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/srg/gattpanel/internal/device"
	"github.com/stretchr/testify/require"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
	Logs   *logtest.Hook
}

// NewTestHelper creates a test helper whose logger records every entry at debug level.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
		Logs:   logtest.NewLocal(logger),
	}
}

// ServiceInfo builds service info of the given shape from its JSON wire form.
// The JSON may contain fmt verbs filled from args.
func (h *TestHelper) ServiceInfo(shape device.ServiceShape, jsonFmt string, args ...any) *device.ServiceInfo {
	h.T.Helper()
	data := jsonFmt
	if len(args) > 0 {
		data = fmt.Sprintf(jsonFmt, args...)
	}
	info, err := device.ParseServiceInfo(shape, []byte(data))
	require.NoError(h.T, err, "invalid service info fixture")
	return info
}

// LoggedMessages returns the messages of all recorded entries at or above level.
func (h *TestHelper) LoggedMessages(level logrus.Level) []string {
	var msgs []string
	for _, e := range h.Logs.AllEntries() {
		if e.Level <= level {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}
