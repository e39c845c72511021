package null

import (
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"net/http"
)

var _ auth.AuthenticationProvider = (*Authenticator)(nil)

const Identity = "NullAuthentication"

// Authenticator lets every request through as an operator of all device categories.
type Authenticator struct{}

func (a Authenticator) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o := auth.Operator{Identity: Identity, Categories: auth.AllCategories}
		next.ServeHTTP(w, r.WithContext(auth.WithOperator(r.Context(), o)))
	})
}

func (a Authenticator) AuthenticationRouter() http.Handler {
	return mux.NewRouter()
}

func (a Authenticator) AuthenticationType() any {
	return auth.AuthenticatorType{
		Type: "null",
	}
}
