package v1

import (
	"context"
	"github.com/shimmeringbee/infragate/device"
)

// Coordinator serialises API actions with the periodic snapshot and serves its cached result.
type Coordinator interface {
	Exclusive(func())
	LastSnapshot() []device.Telemetry
}

type eventMapperInterface interface {
	MapEvent(ctx context.Context, e any) ([]any, error)
	InitialEvents(ctx context.Context) ([]any, error)
}
