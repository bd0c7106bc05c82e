package panel

import (
	"context"

	"github.com/srg/gattpanel/internal/device"
)

const (
	StageConnect          = "connect"
	StageRetrieveServices = "retrieve-services"
)

// stage is one step of a connection attempt. A stage may produce service info.
type stage struct {
	name string
	hint string
	run  func(ctx context.Context, stack device.Stack, id string) (*device.ServiceInfo, error)
}

// connectPipeline runs in order; the first failure ends the attempt.
var connectPipeline = []stage{
	{
		name: StageConnect,
		run: func(ctx context.Context, stack device.Stack, id string) (*device.ServiceInfo, error) {
			return nil, stack.Connect(ctx, id)
		},
	},
	{
		name: StageRetrieveServices,
		hint: HintRetrievingServices,
		run: func(ctx context.Context, stack device.Stack, id string) (*device.ServiceInfo, error) {
			return stack.RetrieveServices(ctx, id)
		},
	},
}
