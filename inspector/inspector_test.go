package inspector

import (
	"context"
	"errors"
	"testing"

	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/panel"
	"github.com/srg/gattpanel/internal/testutils"
	"github.com/srg/gattpanel/internal/testutils/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const address = "AA:BB:CC:DD:EE:FF"

type phaseRecorder struct {
	phases []string
}

func (r *phaseRecorder) record(phase string) {
	r.phases = append(r.phases, phase)
}

func TestInspect_Success(t *testing.T) {
	h := testutils.NewTestHelper(t)
	info := h.ServiceInfo(device.ShapeIdentifiers, `{"services": ["180f"], "characteristics": [{"service": "180f", "uuid": "2a19"}]}`)

	stack := mocks.NewStack(device.ShapeIdentifiers)
	stack.On("Connect", mock.Anything, address).Return(nil).Once()
	stack.On("RetrieveServices", mock.Anything, address).Return(info, nil).Once()
	stack.On("Disconnect", mock.Anything, address).Return(nil).Once()

	rec := &phaseRecorder{}
	count, err := Inspect(context.Background(), device.Peripheral{ID: address}, stack, nil, h.Logger, rec.record,
		func(p *panel.Panel, got *device.ServiceInfo) (int, error) {
			assert.Same(t, info, got)
			services, err := p.Services()
			require.NoError(t, err)
			return len(services), nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{PhaseConnecting, PhaseRetrievingServices, PhaseProcessing}, rec.phases)
	stack.AssertExpectations(t)
}

func TestInspect_ConnectFailure(t *testing.T) {
	h := testutils.NewTestHelper(t)
	stack := mocks.NewStack(device.ShapeIdentifiers)
	stack.On("Connect", mock.Anything, address).Return(errors.New("connection refused")).Once()
	stack.On("Disconnect", mock.Anything, address).Return(nil).Once()

	sink := &mocks.ErrorSink{}
	sink.On("PutError", panel.CategoryConnect, mock.Anything).Once()

	rec := &phaseRecorder{}
	called := false
	_, err := Inspect(context.Background(), device.Peripheral{ID: address}, stack, sink, h.Logger, rec.record,
		func(*panel.Panel, *device.ServiceInfo) (struct{}, error) {
			called = true
			return struct{}{}, nil
		})

	var stageErr *panel.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, panel.StageConnect, stageErr.Stage)
	assert.False(t, called)
	assert.Equal(t, []string{PhaseConnecting, PhaseFailed}, rec.phases)
	stack.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestInspect_CallbackErrorStillDisconnects(t *testing.T) {
	h := testutils.NewTestHelper(t)
	stack := mocks.NewStack(device.ShapeIdentifiers)
	stack.On("Connect", mock.Anything, address).Return(nil).Once()
	stack.On("RetrieveServices", mock.Anything, address).Return(&device.ServiceInfo{Shape: device.ShapeIdentifiers}, nil).Once()
	stack.On("Disconnect", mock.Anything, address).Return(nil).Once()

	boom := errors.New("write failed")
	_, err := Inspect(context.Background(), device.Peripheral{ID: address}, stack, nil, h.Logger, nil,
		func(*panel.Panel, *device.ServiceInfo) (string, error) {
			return "", boom
		})

	assert.ErrorIs(t, err, boom)
	stack.AssertExpectations(t)
}
