package gateway

import (
	"context"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/door"
	"github.com/shimmeringbee/infragate/lift"
)

var _ Door = (*door.Session)(nil)
var _ Lift = (*lift.Session)(nil)

type Door interface {
	Name() string
	ConnectionState() device.ConnectionState
	CheckConnection(context.Context) bool
	GetDoorState(context.Context) door.State
	ActuateDoor(context.Context, bool) device.Outcome
}

type Lift interface {
	Name() string
	ConnectionState() device.ConnectionState
	ConnectionCheck(context.Context) (uint16, bool)
	RunState() uint16

	AvailableFloors() []string
	AvailableModes() []int
	SessionID() string
	SetSessionID(string)

	CurrentFloor(context.Context) (string, bool)
	DestinationFloor(context.Context) (string, bool)
	CurrentMode(context.Context) lift.Mode
	DoorState(context.Context) int16
	MotionState(context.Context) int16

	CommandLift(context.Context, string) device.Outcome
	EndLift(context.Context) device.Outcome
}

// CommandRouter dispatches a raw inbound command for a category of device.
type CommandRouter interface {
	Route(ctx context.Context, category device.Category, payload []byte) error
}

// StateCollector gathers the telemetry of every registered device.
type StateCollector interface {
	Collect(ctx context.Context) []device.Telemetry
}
