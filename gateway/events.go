package gateway

import (
	"time"

	"github.com/shimmeringbee/infragate/device"
)

type DeviceAdded struct {
	Identity device.Identity
}

// CommandRejected is published when an inbound command is dropped before reaching a device.
type CommandRejected struct {
	Category device.Category
	Name     string
	Reason   string
	At       time.Time
}

// CommandDispatched is published once a command has been performed against a device.
type CommandDispatched struct {
	Identity device.Identity
	Action   string
	Outcome  device.Outcome
	At       time.Time
}

type ConnectionStateChanged struct {
	Identity device.Identity
	From     device.ConnectionState
	To       device.ConnectionState
}
