package v1

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/interface/converters/exporter"
	"time"
)

const (
	DeviceListMessageName             = "DeviceList"
	DeviceAddedMessageName            = "DeviceAdded"
	CommandRejectedMessageName        = "CommandRejected"
	CommandDispatchedMessageName      = "CommandDispatched"
	ConnectionStateChangedMessageName = "ConnectionStateChanged"
)

type Message struct {
	Type string `json:"type"`
}

type DeviceListMessage struct {
	Message
	Devices []exporter.ExportedDevice `json:"devices"`
}

type DeviceMessage struct {
	Message
	Name     string `json:"name"`
	Category string `json:"category"`
}

type CommandRejectedMessage struct {
	DeviceMessage
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

type CommandDispatchedMessage struct {
	DeviceMessage
	Action  string         `json:"action"`
	Outcome device.Outcome `json:"outcome"`
	At      time.Time      `json:"at"`
}

type ConnectionStateChangedMessage struct {
	DeviceMessage
	From device.ConnectionState `json:"from"`
	To   device.ConnectionState `json:"to"`
}

var _ eventMapperInterface = (*eventMapper)(nil)

type eventMapper struct {
	mapper      gateway.Mapper
	coordinator Coordinator
}

func deviceMessage(t string, id device.Identity) DeviceMessage {
	return DeviceMessage{Message: Message{Type: t}, Name: id.Name, Category: id.Category.String()}
}

func (m eventMapper) InitialEvents(ctx context.Context) ([]any, error) {
	return []any{DeviceListMessage{
		Message: Message{Type: DeviceListMessageName},
		Devices: exportDevices(m.mapper, m.coordinator),
	}}, nil
}

func (m eventMapper) MapEvent(ctx context.Context, v any) ([]any, error) {
	switch e := v.(type) {
	case gateway.DeviceAdded:
		return []any{deviceMessage(DeviceAddedMessageName, e.Identity)}, nil
	case gateway.CommandRejected:
		return []any{CommandRejectedMessage{
			DeviceMessage: deviceMessage(CommandRejectedMessageName, device.Identity{Name: e.Name, Category: e.Category}),
			Reason:        e.Reason,
			At:            e.At,
		}}, nil
	case gateway.CommandDispatched:
		return []any{CommandDispatchedMessage{
			DeviceMessage: deviceMessage(CommandDispatchedMessageName, e.Identity),
			Action:        e.Action,
			Outcome:       e.Outcome,
			At:            e.At,
		}}, nil
	case gateway.ConnectionStateChanged:
		return []any{ConnectionStateChangedMessage{
			DeviceMessage: deviceMessage(ConnectionStateChangedMessageName, e.Identity),
			From:          e.From,
			To:            e.To,
		}}, nil
	}

	return nil, fmt.Errorf("unimplemented map event: %T", v)
}
