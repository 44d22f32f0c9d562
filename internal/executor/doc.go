// Package executor implements a breadth-first GraphQL executor with
// per-depth batching of asynchronous work and an authorization gate
// consulted before any resolver runs.
//
// # Execution model
//
// Execution proceeds level by level. Synchronous fields (schema.Field.Async
// false) resolve immediately through Runtime.ResolveSync and their object
// results keep expanding downward without adding depth. Asynchronous fields
// discovered while expanding a depth are queued and resolved together in a
// single Runtime.BatchResolveAsync call, so a request whose async depth is d
// costs exactly d batch calls no matter how wide each level is.
//
// Three structures drive the loop:
//
//   - the frontier of synchronous work still reachable at this depth,
//   - the pending async tasks queued for the next batch flush,
//   - the response tree, written in place at each field's response path.
//
// # Preparation
//
// ExecuteRequest selects the operation (by name, or the only one when
// unnamed), coerces variables against the operation's variable definitions,
// and resolves the root object type. Any failure here fails the whole
// request with RequestFailed set; nothing resolves.
//
// # Field gating
//
// When an Option installs a FieldGate, the executor consults it after
// argument coercion and before resolution. Sync fields are checked one at a
// time through CheckField; async fields are checked together through
// BatchCheckFields just before their batch flushes, so a denied task never
// reaches the runtime. A denial carrying a GraphQLError nulls that field and
// collects the error alongside partial data. A denial wrapped in AbortError
// discards all data and fails the request with that single error. The
// __typename meta field bypasses the gate.
//
// # Value completion
//
// Completion follows GraphQL's rules with runtime hooks at the leaves:
//
//   - Non-Null types unwrap and complete the inner type; a nullish inner
//     value records a violation and propagates null to the nearest nullable
//     ancestor.
//   - Lists complete elements recursively with index-aware paths. A null
//     element under a Non-Null element type nullifies the list.
//   - Scalars and enums serialize through Runtime.SerializeLeafValue.
//   - Interface and union values pass through Runtime.ResolveType, and the
//     returned concrete type must be one of the abstract type's possible
//     types.
//   - Objects collect their subfields; fragment spreads and inline
//     fragments apply when their type condition names the concrete type,
//     an interface it implements, or a union it belongs to.
//
// Null propagation tombstones the nullified subtree: queued async tasks
// under a tombstoned path are dropped before the next batch flush rather
// than resolved and discarded.
//
// # Errors and partial success
//
// Field errors are collected as located GraphQL errors carrying the
// response path and source location, and sibling fields keep executing.
// Results within one batch are independent, so a failed element never
// poisons the rest of its batch. Only variable coercion failures, unknown
// operations, and gate aborts fail the request as a whole.
//
// # Runtime contract
//
// The Runtime interface is the host integration point: ResolveSync for
// immediate resolution, BatchResolveAsync for one ordered result per task,
// ResolveType for abstract types, and SerializeLeafValue for leaves. See
// runtime.go for the per-method requirements.
package executor
