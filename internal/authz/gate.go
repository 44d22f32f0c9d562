package authz

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	eventbus "github.com/bilby91/graphql-guard/internal/eventbus"
	events "github.com/bilby91/graphql-guard/internal/events"
	executor "github.com/bilby91/graphql-guard/internal/executor"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// Gate evaluates registered guards for each field the executor is about
// to resolve. It implements executor.FieldGate: a nil return lets the
// field proceed, a GraphQLError collects as a field denial, and an
// AbortError halts the request.
//
// Argument guards run before the field guard, in the arguments'
// declaration order, and only for arguments the request supplies.
type Gate struct {
	reg  *Registry
	mode Mode
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMode selects how denials surface. The default is ModeAbort.
func WithMode(m Mode) GateOption {
	return func(g *Gate) { g.mode = m }
}

func NewGate(reg *Registry, opts ...GateOption) *Gate {
	g := &Gate{reg: reg, mode: ModeAbort}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mode returns the configured denial mode.
func (g *Gate) Mode() Mode { return g.mode }

func (g *Gate) CheckField(ctx context.Context, ev *executor.FieldAccessEvent) error {
	if g.reg == nil {
		return nil
	}
	for _, ag := range g.reg.ArgGuards(ev.ObjectType, ev.FieldName) {
		if _, ok := ev.Args[ag.Argument]; !ok {
			continue
		}
		if err := g.evaluate(ctx, ag.Predicate, ev, ag.Argument); err != nil {
			return err
		}
	}
	returnType := schema.GetNamedType(ev.Field.Type)
	guard := g.reg.GuardFor(ev.ObjectType, ev.FieldName, returnType)
	if guard == nil {
		return nil
	}
	return g.evaluate(ctx, guard, ev, "")
}

// BatchCheckFields evaluates one depth's guards concurrently. An abort
// verdict cancels the group so still-running predicates can return
// early; their slots then fail closed, which the abort supersedes.
func (g *Gate) BatchCheckFields(ctx context.Context, evs []*executor.FieldAccessEvent) []error {
	if g.reg == nil || len(evs) == 0 {
		return nil
	}
	out := make([]error, len(evs))
	eg, gctx := errgroup.WithContext(ctx)
	for i, ev := range evs {
		eg.Go(func() error {
			err := g.CheckField(gctx, ev)
			out[i] = err
			var abort *executor.AbortError
			if errors.As(err, &abort) {
				return err
			}
			return nil
		})
	}
	// Wait's error is the first abort, already captured in out.
	_ = eg.Wait()
	return out
}

// evaluate runs one predicate and converts a falsy or failed outcome
// into the configured denial. A predicate error never reaches the
// client; the cause is published as a GuardEvalError event only.
func (g *Gate) evaluate(ctx context.Context, p Predicate, ev *executor.FieldAccessEvent, argName string) error {
	ok, err := p(ctx, ev.Source, ev.Args)
	if err != nil {
		eventbus.Publish(ctx, events.GuardEvalError{
			TypeName:     ev.ObjectType,
			FieldName:    ev.FieldName,
			ArgumentName: argName,
			Err:          err,
		})
		return g.deny(ctx, ev, argName)
	}
	if !ok {
		return g.deny(ctx, ev, argName)
	}
	return nil
}

func (g *Gate) deny(ctx context.Context, ev *executor.FieldAccessEvent, argName string) error {
	eventbus.Publish(ctx, events.GuardDenied{
		TypeName:     ev.ObjectType,
		FieldName:    ev.FieldName,
		ArgumentName: argName,
		Mode:         g.mode.String(),
		Path:         ev.Path.String(),
	})

	ext := map[string]any{
		"code":      "NOT_AUTHORIZED",
		"typeName":  ev.ObjectType,
		"fieldName": ev.FieldName,
	}
	if argName != "" {
		ext["argumentName"] = argName
	}
	var locations []executor.Location
	if ev.Location != (executor.Location{}) {
		locations = []executor.Location{ev.Location}
	}

	if g.mode == ModeAbort {
		return &executor.AbortError{Err: executor.GraphQLError{
			Message:    denialMessage(ModeAbort, ev.ObjectType, ev.FieldName, argName),
			Locations:  locations,
			Extensions: ext,
		}}
	}
	return executor.GraphQLError{
		Message:    denialMessage(ModeCollect, ev.ObjectType, ev.FieldName, argName),
		Locations:  locations,
		Path:       ev.Path,
		Extensions: ext,
	}
}

func denialMessage(m Mode, typeName, fieldName, argName string) string {
	target := fmt.Sprintf("%s.%s", typeName, fieldName)
	if argName != "" {
		target += "." + argName
	}
	if m == ModeAbort {
		return "Not authorized to access: " + target
	}
	return "Not authorized to access " + target
}
