// Package principal carries the request principal (who is asking) through
// the context and provides the builtin authorization rules over it.
package principal

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

// Principal identifies the caller of a request.
type Principal struct {
	ID    string
	Roles []string
}

// HasRole reports whether the principal carries role. A nil principal
// carries no roles.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// key is the context key for the principal.
type key struct{}

// NewContext returns a copy of parent with the principal attached.
func NewContext(parent context.Context, p *Principal) context.Context {
	return context.WithValue(parent, key{}, p)
}

// FromContext extracts the principal from ctx. It returns nil for
// anonymous requests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(key{}).(*Principal)
	return p
}

// Default identity headers.
const (
	HeaderID    = "X-Principal-Id"
	HeaderRoles = "X-Principal-Roles"
)

// FromHeaders reads the authentication headers: X-Principal-Id names the
// caller and X-Principal-Roles carries a comma-separated role list. A
// request without X-Principal-Id is anonymous and yields nil.
func FromHeaders(h http.Header) *Principal {
	return FromNamedHeaders(h, HeaderID, HeaderRoles)
}

// FromNamedHeaders is FromHeaders with configurable header names.
func FromNamedHeaders(h http.Header, idHeader, rolesHeader string) *Principal {
	id := strings.TrimSpace(h.Get(idHeader))
	if id == "" {
		return nil
	}
	p := &Principal{ID: id}
	for _, role := range strings.Split(h.Get(rolesHeader), ",") {
		if role = strings.TrimSpace(role); role != "" {
			p.Roles = append(p.Roles, role)
		}
	}
	return p
}
