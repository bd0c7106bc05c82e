package panel

import (
	"testing"

	"github.com/srg/gattpanel/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_AttemptLifecycle(t *testing.T) {
	info := &device.ServiceInfo{Shape: device.ShapeIdentifiers, ServiceIDs: []string{"180f"}}

	s, err := Reduce(State{}, AttemptStarted{Hint: HintConnecting})
	require.NoError(t, err)
	assert.True(t, s.Connecting())
	assert.Equal(t, HintConnecting, s.HintText())
	assert.Equal(t, 1, s.Attempt)

	s, err = Reduce(s, StageStarted{Attempt: 1, Stage: StageConnect})
	require.NoError(t, err)
	assert.Equal(t, HintConnecting, s.HintText(), "empty stage hint keeps the current one")

	s, err = Reduce(s, StageSucceeded{Attempt: 1, Stage: StageConnect})
	require.NoError(t, err)
	assert.True(t, s.Connecting())

	s, err = Reduce(s, StageStarted{Attempt: 1, Stage: StageRetrieveServices, Hint: HintRetrievingServices})
	require.NoError(t, err)
	assert.Equal(t, HintRetrievingServices, s.HintText())

	s, err = Reduce(s, StageSucceeded{Attempt: 1, Stage: StageRetrieveServices, Info: info, Done: true})
	require.NoError(t, err)
	assert.True(t, s.Connected())
	assert.False(t, s.Connecting())
	assert.Nil(t, s.Hint)
	assert.Same(t, info, s.Info)
}

func TestReduce_RejectsOverlappingAttempts(t *testing.T) {
	s, err := Reduce(State{}, AttemptStarted{Hint: HintConnecting})
	require.NoError(t, err)

	next, err := Reduce(s, AttemptStarted{Hint: HintConnecting})
	assert.ErrorIs(t, err, ErrAttemptInFlight)
	assert.Equal(t, s, next, "rejected events leave the state unchanged")
}

func TestReduce_NewAttemptResetsState(t *testing.T) {
	hint := "Err: {}"
	prev := State{
		Status:  StatusConnected,
		Hint:    &hint,
		Info:    &device.ServiceInfo{Shape: device.ShapeIdentifiers},
		Attempt: 3,
	}

	s, err := Reduce(prev, AttemptStarted{Hint: HintConnecting})
	require.NoError(t, err)
	assert.Equal(t, StatusConnecting, s.Status)
	assert.Nil(t, s.Info)
	assert.Equal(t, 4, s.Attempt)
	assert.Equal(t, "Err: {}", *prev.Hint, "input state is not modified")
}

func TestReduce_StageFailed(t *testing.T) {
	s, _ := Reduce(State{}, AttemptStarted{Hint: HintConnecting})
	s, _ = Reduce(s, StageSucceeded{Attempt: 1, Stage: StageConnect,
		Info: &device.ServiceInfo{Shape: device.ShapeIdentifiers}})

	s, err := Reduce(s, StageFailed{Attempt: 1, Stage: StageRetrieveServices, Hint: "Err: boom"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, s.Status)
	assert.False(t, s.Connected())
	assert.False(t, s.Connecting())
	assert.Equal(t, "Err: boom", s.HintText())
	assert.Nil(t, s.Info)
}

func TestReduce_StaleAndOrphanEvents(t *testing.T) {
	s, _ := Reduce(State{}, AttemptStarted{Hint: HintConnecting})
	s, _ = Reduce(s, Reset{Hint: HintNotConnected})

	_, err := Reduce(s, StageFailed{Attempt: 1, Stage: StageConnect, Hint: "Err: late"})
	assert.ErrorIs(t, err, ErrNoAttempt)

	s, _ = Reduce(s, AttemptStarted{Hint: HintConnecting})
	_, err = Reduce(s, StageSucceeded{Attempt: 1, Stage: StageConnect, Done: true})
	assert.ErrorIs(t, err, ErrStaleAttempt)
}

func TestReduce_Reset(t *testing.T) {
	s, _ := Reduce(State{}, AttemptStarted{Hint: HintConnecting})

	s, err := Reduce(s, Reset{Hint: HintNotConnected})
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, HintNotConnected, s.HintText())
	assert.Equal(t, 1, s.Attempt)

	s, err = Reduce(s, Reset{})
	require.NoError(t, err)
	assert.Nil(t, s.Hint)
}

type bogusEvent struct{}

func (bogusEvent) isEvent() {}

func TestReduce_UnknownEvent(t *testing.T) {
	_, err := Reduce(State{}, bogusEvent{})
	assert.ErrorContains(t, err, "unsupported event")
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
