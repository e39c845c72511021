package jwt

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/infragate/device"
	"github.com/shimmeringbee/infragate/interface/http/auth"
	"net/http"
	"strings"
	"time"
)

var clock = time.Now

const DefaultTTL = 1 * time.Hour

var _ auth.AuthenticationProvider = (*Authenticator)(nil)

// Claims are the standard claims plus the device categories the subject may command.
type Claims struct {
	jwt.StandardClaims
	Categories []string `json:"categories,omitempty"`
}

type Authenticator struct {
	SystemIdentifier string
	TTL              time.Duration

	KeyIdentifier string
	PrivateKey    *ecdsa.PrivateKey
}

func (a Authenticator) AuthenticationRouter() http.Handler {
	return mux.NewRouter()
}

func (a Authenticator) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader, found := r.Header["Authentication"]
		if !found || len(authHeader) != 1 {
			w.Header().Add("WWW-Authenticate", fmt.Sprintf("Bearer realm=\"%s\"", a.SystemIdentifier))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		authParts := strings.SplitN(authHeader[0], " ", 2)
		if authParts[0] != "Bearer" || len(authParts) != 2 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			w.Header().Add("WWW-Authenticate", fmt.Sprintf("Bearer realm=\"%s\", error=\"invalid_request\", error=\"Incomplete or incompatible authentication provided.\"", a.SystemIdentifier))
			return
		}

		o, err := a.Verify(authParts[1])
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			w.Header().Add("WWW-Authenticate", fmt.Sprintf("Bearer realm=\"%s\", error=\"invalid_token\", error=\"Invalid credential.\"", a.SystemIdentifier))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithOperator(r.Context(), o)))
	})
}

func (a Authenticator) AuthenticationType() any {
	return auth.AuthenticatorType{
		Type: "jwt",
	}
}

func (a Authenticator) Sign(uid string, categories []device.Category) (string, error) {
	id := uuid.New().String()

	iss := clock()
	exp := iss.Add(a.TTL)

	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Id: id,

			Issuer:  a.SystemIdentifier,
			Subject: uid,

			IssuedAt:  iss.Unix(),
			ExpiresAt: exp.Unix(),
		},
		Categories: auth.Operator{Categories: categories}.CategoryNames(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = a.KeyIdentifier

	return token.SignedString(a.PrivateKey)
}

func (a Authenticator) Verify(jwtString string) (auth.Operator, error) {
	token, err := jwt.ParseWithClaims(jwtString, &Claims{}, a.keyLookup)
	if err != nil {
		return auth.Operator{}, fmt.Errorf("failed to parse and verify signature in token: %w", err)
	}

	claims := token.Claims.(*Claims)
	if !claims.VerifyIssuer(a.SystemIdentifier, true) {
		return auth.Operator{}, fmt.Errorf("JWT is not for this system")
	}

	categories, err := auth.ParseCategories(claims.Categories)
	if err != nil {
		return auth.Operator{}, fmt.Errorf("JWT grants an invalid category: %w", err)
	}

	return auth.Operator{Identity: claims.Subject, Categories: categories}, nil
}

func (a Authenticator) keyLookup(token *jwt.Token) (any, error) {
	if token.Header["alg"] != "ES256" {
		return nil, errors.New("unacceptable algorithm in JWT")
	}

	if kid, found := token.Header["kid"]; found && kid == a.KeyIdentifier {
		return a.PrivateKey.Public(), nil
	}

	return nil, errors.New("no public key found for token")
}

// ParsePrivateKey reads a PEM encoded EC private key suitable for ES256.
func ParsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found in private key")
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}

	return key, nil
}
