package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/door"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/lift"
	"github.com/shimmeringbee/logwrap"
)

// NoFloor is sent in place of a floor the lift could not report.
const NoFloor = "0"

type DoorState struct {
	Time        int64      `json:"door_time"`
	Name        string     `json:"door_name"`
	CurrentMode door.State `json:"current_mode"`
}

type LiftState struct {
	Time             int64     `json:"lift_time"`
	Name             string    `json:"lift_name"`
	AvailableFloors  []string  `json:"available_floors"`
	CurrentFloor     string    `json:"current_floor"`
	DestinationFloor string    `json:"destination_floor"`
	DoorState        int16     `json:"door_state"`
	MotionState      int16     `json:"motion_state"`
	AvailableModes   []int     `json:"available_modes"`
	LiftMode         lift.Mode `json:"lift_mode"`
	SessionID        string    `json:"session_id"`
}

var _ gateway.StateCollector = (*Collector)(nil)

// Collector health checks every session and reads its current state.
type Collector struct {
	Mapper         gateway.Mapper
	EventPublisher gateway.EventPublisher
	Logger         logwrap.Logger
	Clock          func() time.Time

	lock  sync.Mutex
	known map[device.Identity]device.ConnectionState
}

func (c *Collector) Collect(ctx context.Context) []device.Telemetry {
	var telemetry []device.Telemetry

	for _, d := range c.Mapper.Doors() {
		telemetry = append(telemetry, c.collectDoor(ctx, d))
	}

	for _, l := range c.Mapper.Lifts() {
		telemetry = append(telemetry, c.collectLift(ctx, l))
	}

	return telemetry
}

func (c *Collector) collectDoor(ctx context.Context, d gateway.Door) device.Telemetry {
	id := device.Identity{Name: d.Name(), Category: device.Door}

	if !d.CheckConnection(ctx) {
		c.Logger.LogDebug(ctx, "Door heartbeat failed.", logwrap.Datum("door", id.Name))
	}
	c.track(id, d.ConnectionState())

	return device.Telemetry{
		Identity: id,
		Payload: DoorState{
			Time:        c.now().Unix(),
			Name:        id.Name,
			CurrentMode: d.GetDoorState(ctx),
		},
	}
}

func (c *Collector) collectLift(ctx context.Context, l gateway.Lift) device.Telemetry {
	id := device.Identity{Name: l.Name(), Category: device.Lift}

	if code, ok := l.ConnectionCheck(ctx); !ok {
		c.Logger.LogDebug(ctx, "Lift not in run state.", logwrap.Datum("lift", id.Name), logwrap.Datum("runState", code))
	}
	c.track(id, l.ConnectionState())

	current, found := l.CurrentFloor(ctx)
	if !found {
		current = NoFloor
	}

	destination, found := l.DestinationFloor(ctx)
	if !found {
		destination = NoFloor
	}

	return device.Telemetry{
		Identity: id,
		Payload: LiftState{
			Time:             c.now().Unix(),
			Name:             id.Name,
			AvailableFloors:  l.AvailableFloors(),
			CurrentFloor:     current,
			DestinationFloor: destination,
			DoorState:        l.DoorState(ctx),
			MotionState:      l.MotionState(ctx),
			AvailableModes:   l.AvailableModes(),
			LiftMode:         l.CurrentMode(ctx),
			SessionID:        l.SessionID(),
		},
	}
}

// track publishes a change event when a device's connection state differs from the last collection.
func (c *Collector) track(id device.Identity, state device.ConnectionState) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.known == nil {
		c.known = map[device.Identity]device.ConnectionState{}
	}

	previous, seen := c.known[id]
	c.known[id] = state

	if seen && previous != state {
		c.EventPublisher.Publish(gateway.ConnectionStateChanged{Identity: id, From: previous, To: state})
	}
}

func (c *Collector) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}

	return c.Clock()
}
