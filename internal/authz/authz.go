package authz

import (
	"context"
	"fmt"
)

// Predicate is a guard or mask rule. It reports whether the current
// request may access its target, given the parent value and the coerced
// arguments of the field-access event. Predicates must be safe for
// concurrent use and must not mutate their inputs.
type Predicate func(ctx context.Context, source any, args map[string]any) (bool, error)

// Mode selects how the gate surfaces denials.
type Mode int

const (
	// ModeAbort halts the whole request on the first denial and returns
	// no data. This is the default.
	ModeAbort Mode = iota
	// ModeCollect records a response error per denial, substitutes null
	// for the denied field, and lets sibling fields resolve.
	ModeCollect
)

func (m Mode) String() string {
	switch m {
	case ModeCollect:
		return "collect"
	default:
		return "abort"
	}
}

// ParseMode parses "abort" or "collect".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "abort":
		return ModeAbort, nil
	case "collect":
		return ModeCollect, nil
	}
	return ModeAbort, fmt.Errorf("unknown authorization mode %q", s)
}
