package external

import (
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"net/http"
	"strings"
)

var _ auth.AuthenticationProvider = (*Authenticator)(nil)

// Authenticator trusts a fronting proxy to have authenticated the user. When CategoryHeader is set the
// proxy also names the device categories the user may command, otherwise every category is allowed.
type Authenticator struct {
	UserHeader     string
	CategoryHeader string
}

const HttpUserHeader string = "HTTP_USER"

func (a Authenticator) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(a.UserHeader)
		if len(user) == 0 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		o := auth.Operator{Identity: user, Categories: auth.AllCategories}

		if len(a.CategoryHeader) > 0 {
			categories, err := auth.ParseCategories(strings.Split(r.Header.Get(a.CategoryHeader), ","))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			o.Categories = categories
		}

		next.ServeHTTP(w, r.WithContext(auth.WithOperator(r.Context(), o)))
	})
}

func (a Authenticator) AuthenticationRouter() http.Handler {
	return mux.NewRouter()
}

func (a Authenticator) AuthenticationType() any {
	return auth.AuthenticatorType{
		Type: "external",
	}
}
