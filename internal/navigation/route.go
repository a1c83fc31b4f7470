package navigation

import (
	"fmt"
	"net/url"
	"strings"
)

// SubRoute is a parsed sub-route path such as "order-detail?id=ord_1"
type SubRoute struct {
	Name   string
	Params url.Values
}

// ParseSubRoute splits raw on its first '?' into a route name and query params
func ParseSubRoute(raw string) (SubRoute, error) {
	name, query, _ := strings.Cut(strings.TrimSpace(raw), "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return SubRoute{}, fmt.Errorf("invalid sub-route %q: %w", raw, err)
	}
	return SubRoute{Name: name, Params: params}, nil
}

// String formats the route back into path form with params sorted by key
func (r SubRoute) String() string {
	if len(r.Params) == 0 {
		return r.Name
	}
	return r.Name + "?" + r.Params.Encode()
}
