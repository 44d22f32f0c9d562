package executor

import (
	"context"
)

// Runtime is the host integration surface: it resolves field values,
// batches async work, names concrete types for abstract values, and
// serializes leaves. The executor may call it concurrently for different
// requests, so implementations must be stateless or otherwise safe, and
// must not mutate source or args.
//
// objectType and field name the schema position being resolved ("User",
// "posts"); for root fields objectType is the root type name. source is
// the parent value, nil at the root. args arrive already coerced.
//
// An error returned from any method becomes a located GraphQL error; for
// a Non-Null field the executor then propagates null to the nearest
// nullable ancestor.
type Runtime interface {
	// ResolveSync resolves a synchronous field immediately and returns the
	// raw value for completion. Return (nil, nil) for a GraphQL null.
	// Never called for fields marked Async.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async tasks in a
	// single call. It runs only when the depth queued at least one task,
	// after tombstoned and gate-denied tasks were dropped. Results align
	// with tasks by index and len(results) must equal len(tasks); each
	// element fails independently without poisoning the batch.
	// Implementations are free to group further by (objectType, field) or
	// backend affinity as long as result order is preserved.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type for a value of the given
	// abstract (interface or union) type. The returned name must be one of
	// the abstract type's possible types, or an error.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue turns a scalar or enum value into a JSON-safe Go
	// value: enum names as string, Int as int32 unless mapped otherwise,
	// Float as float64, byte slices base64-encoded.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// AsyncResolveTask is one queued async field resolution.
type AsyncResolveTask struct {
	ObjectType string         // parent object type name
	Field      string         // field name on that type
	Source     any            // parent value, nil for root fields
	Args       map[string]any // coerced argument values
}

// AsyncResolveResult carries the outcome for the task at the same index.
type AsyncResolveResult struct {
	Value any
	Error error // fails this element only
}
