// Package mask plans and applies per-request schema visibility.
//
// A plan is computed once per request by evaluating every registered
// visibility predicate against the request context and variable values.
// Applying a plan to a schema yields a narrowed view in which hidden
// fields and arguments do not exist at all: validation and
// introspection against the view cannot distinguish a hidden element
// from one that was never defined.
package mask

import (
	"context"
	"time"

	"github.com/bilby91/graphql-guard/internal/authz"
	"github.com/bilby91/graphql-guard/internal/eventbus"
	"github.com/bilby91/graphql-guard/internal/events"
)

// Visibility is the outcome of evaluating mask predicates for one
// request. The zero value hides nothing.
type Visibility struct {
	hiddenFields map[string]struct{}
	hiddenArgs   map[string]struct{}
}

// FieldHidden reports whether the plan hides typeName.fieldName.
func (v *Visibility) FieldHidden(typeName, fieldName string) bool {
	if v == nil {
		return false
	}
	_, ok := v.hiddenFields[fieldKey(typeName, fieldName)]
	return ok
}

// ArgumentHidden reports whether the plan hides an argument of
// typeName.fieldName.
func (v *Visibility) ArgumentHidden(typeName, fieldName, argName string) bool {
	if v == nil {
		return false
	}
	_, ok := v.hiddenArgs[argKey(typeName, fieldName, argName)]
	return ok
}

// Empty reports whether the plan hides nothing, in which case the
// base schema can be served unchanged.
func (v *Visibility) Empty() bool {
	return v == nil || len(v.hiddenFields) == 0 && len(v.hiddenArgs) == 0
}

// Plan evaluates the registry's mask targets for one request.
// Predicates receive a nil parent value and the request's coerced
// variable values. A predicate error hides its target and is reported
// on the event bus; the client never learns why an element is absent.
func Plan(ctx context.Context, reg *authz.Registry, variables map[string]any) *Visibility {
	start := time.Now()
	v := &Visibility{
		hiddenFields: map[string]struct{}{},
		hiddenArgs:   map[string]struct{}{},
	}
	if reg == nil {
		return v
	}
	for _, target := range reg.MaskTargets() {
		visible, err := target.Predicate(ctx, nil, variables)
		if err != nil {
			eventbus.Publish(ctx, events.GuardEvalError{
				TypeName:     target.Type,
				FieldName:    target.Field,
				ArgumentName: target.Argument,
				Err:          err,
			})
			visible = false
		}
		if visible {
			continue
		}
		if target.Argument == "" {
			v.hiddenFields[fieldKey(target.Type, target.Field)] = struct{}{}
		} else {
			v.hiddenArgs[argKey(target.Type, target.Field, target.Argument)] = struct{}{}
		}
	}
	eventbus.Publish(ctx, events.MaskPlanned{
		HiddenFields:    len(v.hiddenFields),
		HiddenArguments: len(v.hiddenArgs),
		Duration:        time.Since(start),
	})
	return v
}

func fieldKey(typeName, fieldName string) string {
	return typeName + "." + fieldName
}

func argKey(typeName, fieldName, argName string) string {
	return typeName + "." + fieldName + "." + argName
}
