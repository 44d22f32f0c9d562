package authz

import "context"

// Policy is the authorization entry point of an externally authored
// policy object. A policy is associated with one named type; Authorize
// is consulted for each access to a field whose declared return type
// carries the policy marker.
type Policy interface {
	Authorize(ctx context.Context, fieldName string, source any, args map[string]any) (bool, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, fieldName string, source any, args map[string]any) (bool, error)

func (f PolicyFunc) Authorize(ctx context.Context, fieldName string, source any, args map[string]any) (bool, error) {
	return f(ctx, fieldName, source, args)
}

// PolicyLocator maps a type name to its policy object. Resolution runs
// once per marked type when the registry is built, never during request
// handling.
type PolicyLocator interface {
	LocatePolicy(typeName string) (Policy, bool)
}

// PolicyLocatorFunc adapts a function to the PolicyLocator interface.
type PolicyLocatorFunc func(typeName string) (Policy, bool)

func (f PolicyLocatorFunc) LocatePolicy(typeName string) (Policy, bool) { return f(typeName) }
