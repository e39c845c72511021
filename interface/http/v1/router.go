package v1

import (
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/infragate/gateway"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"github.com/shimmeringbee/logwrap"
	"net/http"
)

func ConstructRouter(mapper gateway.Mapper, coordinator Coordinator, l logwrap.Logger, ap auth.AuthenticationProvider, eventbus gateway.EventSubscriber) http.Handler {
	protected := mux.NewRouter()

	dc := deviceController{
		mapper:      mapper,
		coordinator: coordinator,
	}

	ec := eventsController{
		eventbus:    eventbus,
		eventMapper: eventMapper{mapper: mapper, coordinator: coordinator},
		logger:      l,
	}

	protected.HandleFunc("/devices", dc.listDevices).Methods("GET")
	protected.HandleFunc("/telemetry", dc.getTelemetry).Methods("GET")
	protected.HandleFunc("/doors/{name}/actuate", dc.actuateDoor).Methods("POST")
	protected.HandleFunc("/lifts/{name}/command", dc.commandLift).Methods("POST")
	protected.HandleFunc("/lifts/{name}/end", dc.endLift).Methods("POST")

	protected.HandleFunc("/events", ec.serveWebsocket).Methods("GET")
	protected.HandleFunc("/events/stream", ec.serveServerSideEvent).Methods("GET")

	apiRoot := mux.NewRouter()
	apiRoot.Handle("/auth/type", authenticationType(ap)).Methods("GET")
	apiRoot.Handle("/auth/check", ap.AuthenticationMiddleware(http.HandlerFunc(authenticationCheck))).Methods("GET")
	apiRoot.PathPrefix("/auth").Handler(ap.AuthenticationRouter())
	apiRoot.PathPrefix("/").Handler(ap.AuthenticationMiddleware(protected))

	return apiRoot
}
