// Package mocks holds testify/mock implementations of the device and panel interfaces.
package mocks

import (
	"context"

	"github.com/srg/gattpanel/internal/device"
	"github.com/stretchr/testify/mock"
)

// Stack is a mock device.Stack. Shape defaults to the value of ShapeValue
// and is not recorded as a call.
type Stack struct {
	mock.Mock
	ShapeValue device.ServiceShape
}

func NewStack(shape device.ServiceShape) *Stack {
	return &Stack{ShapeValue: shape}
}

func (m *Stack) Connect(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Stack) RetrieveServices(ctx context.Context, id string) (*device.ServiceInfo, error) {
	args := m.Called(ctx, id)
	info, _ := args.Get(0).(*device.ServiceInfo)
	return info, args.Error(1)
}

func (m *Stack) Disconnect(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Stack) Shape() device.ServiceShape {
	return m.ShapeValue
}

var _ device.Stack = (*Stack)(nil)
