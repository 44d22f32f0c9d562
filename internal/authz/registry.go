package authz

import (
	"context"
	"strings"
)

// ArgGuard is a guard bound to one argument of a field. The registry
// keeps a field's argument guards in the arguments' declaration order.
type ArgGuard struct {
	Argument  string
	Predicate Predicate
}

// MaskTarget is one visibility rule. Argument is empty for field masks.
// The registry keeps targets sorted so plans evaluate deterministically.
type MaskTarget struct {
	Type      string
	Field     string
	Argument  string
	Predicate Predicate
}

// Registry holds every guard, mask and resolved policy for one schema.
// It is built once by a Builder and read-only afterwards, so concurrent
// requests share it without locking.
type Registry struct {
	fieldGuards map[string]Predicate
	typeGuards  map[string]Predicate
	argGuards   map[string][]ArgGuard
	policies    map[string]Policy
	maskTargets []MaskTarget
}

// GuardFor resolves the guard applying to one field access: the field's
// own guard wins, else the guard on the field's declared return type,
// else the policy registered for that return type, else nil.
func (r *Registry) GuardFor(parentType, fieldName, returnType string) Predicate {
	if p, ok := r.fieldGuards[fieldKey(parentType, fieldName)]; ok {
		return p
	}
	if p, ok := r.typeGuards[returnType]; ok {
		return p
	}
	if pol, ok := r.policies[returnType]; ok {
		return policyPredicate(pol, fieldName)
	}
	return nil
}

// ArgGuards returns the field's argument guards in declaration order.
func (r *Registry) ArgGuards(parentType, fieldName string) []ArgGuard {
	return r.argGuards[fieldKey(parentType, fieldName)]
}

// MaskTargets returns every visibility rule, sorted by target.
func (r *Registry) MaskTargets() []MaskTarget { return r.maskTargets }

// HasMasks reports whether any visibility rule is registered.
func (r *Registry) HasMasks() bool { return len(r.maskTargets) > 0 }

func policyPredicate(p Policy, fieldName string) Predicate {
	return func(ctx context.Context, source any, args map[string]any) (bool, error) {
		return p.Authorize(ctx, fieldName, source, args)
	}
}

func fieldKey(typeName, fieldName string) string {
	return typeName + "." + fieldName
}

func splitFieldKey(key string) (string, string) {
	typeName, fieldName, _ := strings.Cut(key, ".")
	return typeName, fieldName
}
