package executor

import (
	"context"

	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// FieldGate decides whether a request may access a field before its
// resolver runs. The executor consults the gate after argument coercion:
// sync fields one at a time through CheckField, async fields once per
// depth through BatchCheckFields just before the batch is flushed.
//
// A nil error allows the field. A GraphQLError denies the field and is
// collected into the result as-is. An *AbortError halts the whole request
// and its wrapped error becomes the only error in the result.
//
// The __typename meta field is never gated.
type FieldGate interface {
	CheckField(ctx context.Context, ev *FieldAccessEvent) error
	// BatchCheckFields returns one verdict per event, aligned by index.
	// A nil slice allows every event.
	BatchCheckFields(ctx context.Context, evs []*FieldAccessEvent) []error
}

// FieldAccessEvent describes a single field access about to happen.
type FieldAccessEvent struct {
	ObjectType string
	FieldName  string
	Field      *schema.Field
	Source     any
	Args       map[string]any
	Path       Path
	Location   Location
}

// AbortError wraps a denial that should stop the request instead of
// being collected alongside partial data.
type AbortError struct {
	Err GraphQLError
}

func (e *AbortError) Error() string { return e.Err.Message }
