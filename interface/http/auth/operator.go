package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shimmeringbee/infragate/device"
)

type AuthenticationProvider interface {
	AuthenticationMiddleware(next http.Handler) http.Handler
	AuthenticationRouter() http.Handler
	AuthenticationType() any
}

type AuthenticatorType struct {
	Type string `json:"type"`
}

type authError string

func (e authError) Error() string {
	return string(e)
}

const UnknownCategory = authError("unknown device category")

// AllCategories is every category of device an operator can be allowed to command.
var AllCategories = []device.Category{device.Door, device.Lift}

// Operator is an authenticated API caller and the device categories it may command. Reading state
// needs no category.
type Operator struct {
	Identity   string
	Categories []device.Category
}

func (o Operator) Permits(category device.Category) bool {
	for _, c := range o.Categories {
		if c == category {
			return true
		}
	}

	return false
}

func (o Operator) CategoryNames() []string {
	names := make([]string, 0, len(o.Categories))

	for _, c := range o.Categories {
		names = append(names, c.String())
	}

	return names
}

type operatorContextKey struct{}

func WithOperator(ctx context.Context, o Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, o)
}

func OperatorFrom(ctx context.Context) (Operator, bool) {
	o, ok := ctx.Value(operatorContextKey{}).(Operator)
	return o, ok
}

// ParseCategories converts category names such as "door" and "lift", blank names are ignored.
func ParseCategories(names []string) ([]device.Category, error) {
	var categories []device.Category

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if len(name) == 0 {
			continue
		}

		found := false

		for _, c := range AllCategories {
			if c.String() == name {
				categories = append(categories, c)
				found = true
				break
			}
		}

		if !found {
			return nil, fmt.Errorf("%w: %s", UnknownCategory, name)
		}
	}

	return categories, nil
}
