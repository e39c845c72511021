package v1

import (
	"encoding/json"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"net/http"
)

type AuthenticationCheckPayload struct {
	Authenticated bool     `json:"authenticated"`
	Identity      string   `json:"identity,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

func authenticationCheck(w http.ResponseWriter, r *http.Request) {
	payload := AuthenticationCheckPayload{}

	if o, found := auth.OperatorFrom(r.Context()); found && len(o.Identity) > 0 {
		payload.Authenticated = true
		payload.Identity = o.Identity
		payload.Categories = o.CategoryNames()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func authenticationType(ap auth.AuthenticationProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := json.Marshal(ap.AuthenticationType())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Add("content-type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
