package exporter

import (
	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/gateway"
)

type ExportedDevice struct {
	Name            string
	Category        string
	ConnectionState device.ConnectionState
}

// ExportDevices lists every registered device without touching its connection.
func ExportDevices(m gateway.Mapper) []ExportedDevice {
	var devices []ExportedDevice

	for _, d := range m.Doors() {
		devices = append(devices, ExportedDevice{Name: d.Name(), Category: device.Door.String(), ConnectionState: d.ConnectionState()})
	}

	for _, l := range m.Lifts() {
		devices = append(devices, ExportedDevice{Name: l.Name(), Category: device.Lift.String(), ConnectionState: l.ConnectionState()})
	}

	return devices
}
