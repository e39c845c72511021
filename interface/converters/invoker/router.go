package invoker

import (
	"context"
	"fmt"
	"time"

	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
)

type commandError string

func (e commandError) Error() string {
	return string(e)
}

const MalformedCommand = commandError("command missing required fields")
const StaleCommand = commandError("command request time is in the future")
const UnknownDevice = commandError("no device with that name")
const UnmappedRequest = commandError("request does not map to an action")
const UnknownCategory = commandError("unknown device category")

var LiftCommandFields = []string{"lift_name", "request_time", "session_id", "request_type", "destination_floor", "door_state"}
var DoorCommandFields = []string{"door_name", "request_time", "requester_id", "requested_mode"}

const (
	LiftRequestEnd     int64 = 0
	LiftRequestCommand int64 = 1
	LiftRequestRelease int64 = 2
)

const (
	DoorRequestClose int64 = 0
	DoorRequestHold  int64 = 1
	DoorRequestOpen  int64 = 2
)

var _ gateway.CommandRouter = (*Router)(nil)

// Router turns inbound command payloads into actions against registered sessions.
type Router struct {
	Mapper         gateway.Mapper
	EventPublisher gateway.EventPublisher
	Logger         logwrap.Logger
	Clock          func() time.Time
}

func (r *Router) Route(ctx context.Context, category device.Category, payload []byte) error {
	var err error

	switch category {
	case device.Lift:
		err = r.routeLift(ctx, payload)
	case device.Door:
		err = r.routeDoor(ctx, payload)
	default:
		err = fmt.Errorf("%w: %d", UnknownCategory, category)
	}

	if err != nil {
		r.Logger.LogDebug(ctx, "Inbound command rejected.", logwrap.Datum("category", category.String()), logwrap.Err(err))

		r.EventPublisher.Publish(gateway.CommandRejected{
			Category: category,
			Name:     nameOf(category, payload),
			Reason:   err.Error(),
			At:       r.now(),
		})
	}

	return err
}

func (r *Router) routeLift(ctx context.Context, payload []byte) error {
	fields, err := r.parse(payload, LiftCommandFields)
	if err != nil {
		return err
	}

	name := fields[0].String()

	l, found := r.Mapper.Lift(name)
	if !found {
		return fmt.Errorf("%w: lift %s", UnknownDevice, name)
	}

	requestType, err := requestCode(fields[3], "request_type")
	if err != nil {
		return err
	}

	var action string
	var outcome device.Outcome

	switch requestType {
	case LiftRequestEnd, LiftRequestRelease:
		l.SetSessionID(fields[2].String())
		action = "end"
		outcome = l.EndLift(ctx)
	case LiftRequestCommand:
		l.SetSessionID(fields[2].String())
		action = "command"
		outcome = l.CommandLift(ctx, floorOf(fields[4]))
	default:
		return fmt.Errorf("%w: request_type %d", UnmappedRequest, requestType)
	}

	r.dispatched(device.Identity{Name: name, Category: device.Lift}, action, outcome)
	return nil
}

func (r *Router) routeDoor(ctx context.Context, payload []byte) error {
	fields, err := r.parse(payload, DoorCommandFields)
	if err != nil {
		return err
	}

	name := fields[0].String()

	d, found := r.Mapper.Door(name)
	if !found {
		return fmt.Errorf("%w: door %s", UnknownDevice, name)
	}

	requestedMode, err := requestCode(fields[3], "requested_mode")
	if err != nil {
		return err
	}

	var open bool

	switch requestedMode {
	case DoorRequestClose:
		open = false
	case DoorRequestOpen:
		open = true
	default:
		return fmt.Errorf("%w: requested_mode %d", UnmappedRequest, requestedMode)
	}

	action := "close"
	if open {
		action = "open"
	}

	outcome := d.ActuateDoor(ctx, open)

	r.dispatched(device.Identity{Name: name, Category: device.Door}, action, outcome)
	return nil
}

// parse returns the named fields in order, a command is stale if it claims to be from the future.
func (r *Router) parse(payload []byte, names []string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: invalid json", MalformedCommand)
	}

	fields := gjson.GetManyBytes(payload, names...)

	for i, field := range fields {
		if !field.Exists() || field.Type == gjson.Null {
			return nil, fmt.Errorf("%w: %s", MalformedCommand, names[i])
		}
	}

	requestTime := fields[1]
	if requestTime.Type != gjson.Number {
		return nil, fmt.Errorf("%w: request_time not numeric", MalformedCommand)
	}

	if now := r.now().Unix(); requestTime.Int() > now {
		return nil, fmt.Errorf("%w: %d > %d", StaleCommand, requestTime.Int(), now)
	}

	return fields, nil
}

func (r *Router) dispatched(id device.Identity, action string, outcome device.Outcome) {
	r.EventPublisher.Publish(gateway.CommandDispatched{
		Identity: id,
		Action:   action,
		Outcome:  outcome,
		At:       r.now(),
	})
}

func (r *Router) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}

	return r.Clock()
}

// requestCode reads a field that selects an action, it must be a whole JSON number.
func requestCode(field gjson.Result, name string) (int64, error) {
	if field.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s not numeric", MalformedCommand, name)
	}

	code := int64(field.Num)
	if float64(code) != field.Num {
		return 0, fmt.Errorf("%w: %s not a whole number", MalformedCommand, name)
	}

	return code, nil
}

// floorOf accepts a destination as either a JSON string or number.
func floorOf(field gjson.Result) string {
	if field.Type == gjson.String {
		return field.Str
	}

	return field.Raw
}

func nameOf(category device.Category, payload []byte) string {
	switch category {
	case device.Lift:
		return gjson.GetBytes(payload, "lift_name").String()
	case device.Door:
		return gjson.GetBytes(payload, "door_name").String()
	}

	return ""
}
