package v1

import (
	"context"
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/interface/converters/exporter"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"io"
	"net/http"
)

// deviceController performs device actions under the coordinator guard. Actions are detached from the
// request context so a client going away never cuts a write and verify sequence short.
type deviceController struct {
	mapper      gateway.Mapper
	coordinator Coordinator
}

type OutcomeResponse struct {
	Outcome   device.Outcome `json:"outcome"`
	Succeeded bool           `json:"succeeded"`
}

type actuateDoorRequest struct {
	Open *bool `json:"open"`
}

type commandLiftRequest struct {
	Floor string `json:"floor"`
}

func (d *deviceController) listDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, exportDevices(d.mapper, d.coordinator))
}

// exportDevices reads connection states under the guard, sessions update them during a snapshot.
func exportDevices(mapper gateway.Mapper, coordinator Coordinator) []exporter.ExportedDevice {
	var devices []exporter.ExportedDevice

	coordinator.Exclusive(func() {
		devices = exporter.ExportDevices(mapper)
	})

	return devices
}

func (d *deviceController) getTelemetry(w http.ResponseWriter, r *http.Request) {
	telemetry := d.coordinator.LastSnapshot()

	payloads := make([]any, 0, len(telemetry))
	for _, t := range telemetry {
		payloads = append(payloads, t.Payload)
	}

	writeJSON(w, payloads)
}

func (d *deviceController) actuateDoor(w http.ResponseWriter, r *http.Request) {
	if !permitted(w, r, device.Door) {
		return
	}

	name := mux.Vars(r)["name"]

	door, found := d.mapper.Door(name)
	if !found {
		http.NotFound(w, r)
		return
	}

	request := actuateDoorRequest{}
	if !readJSON(w, r, &request) {
		return
	}

	if request.Open == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var outcome device.Outcome
	d.coordinator.Exclusive(func() {
		outcome = door.ActuateDoor(context.Background(), *request.Open)
	})

	writeOutcome(w, outcome)
}

func (d *deviceController) commandLift(w http.ResponseWriter, r *http.Request) {
	if !permitted(w, r, device.Lift) {
		return
	}

	name := mux.Vars(r)["name"]

	lift, found := d.mapper.Lift(name)
	if !found {
		http.NotFound(w, r)
		return
	}

	request := commandLiftRequest{}
	if !readJSON(w, r, &request) {
		return
	}

	if len(request.Floor) == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var outcome device.Outcome
	d.coordinator.Exclusive(func() {
		outcome = lift.CommandLift(context.Background(), request.Floor)
	})

	writeOutcome(w, outcome)
}

func (d *deviceController) endLift(w http.ResponseWriter, r *http.Request) {
	if !permitted(w, r, device.Lift) {
		return
	}

	name := mux.Vars(r)["name"]

	lift, found := d.mapper.Lift(name)
	if !found {
		http.NotFound(w, r)
		return
	}

	var outcome device.Outcome
	d.coordinator.Exclusive(func() {
		outcome = lift.EndLift(context.Background())
	})

	writeOutcome(w, outcome)
}

// permitted rejects the request unless the authenticated operator may command the category.
func permitted(w http.ResponseWriter, r *http.Request, category device.Category) bool {
	o, found := auth.OperatorFrom(r.Context())
	if !found {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return false
	}

	if !o.Permits(category) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return false
	}

	return true
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}

	return true
}

func writeOutcome(w http.ResponseWriter, outcome device.Outcome) {
	writeJSON(w, OutcomeResponse{Outcome: outcome, Succeeded: outcome.Succeeded()})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Add("content-type", "application/json")
	w.Write(data)
}
