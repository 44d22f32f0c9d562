// Package memrt hosts GraphQL execution over an in-memory document tree.
// It serves fixtures and demos without a real backend: root fields read
// from the dataset, nested fields read from their parent document, and Go
// resolver overrides cover anything computed.
package memrt

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	executor "github.com/bilby91/graphql-guard/internal/executor"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// ResolveFunc computes a field value in place of the document lookup.
type ResolveFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// Runtime implements executor.Runtime over a Dataset.
// Invariants and boundaries:
//   - Source shape: object sources are map[string]any documents (nil at the
//     root). Any other source type is a programming error and causes panic.
//   - ResolveSync performs no I/O. It calls a sync override when one is
//     registered and reads the document tree otherwise.
//   - Async fields must have an async override registered; a task reaching
//     BatchResolveAsync without one causes panic.
//   - Concurrency: BatchResolveAsync groups tasks by (objectType, field) and
//     executes groups in parallel. Overrides must be concurrency-safe.
//   - Determinism: results preserve input ordering; partial success is
//     supported.
type Runtime struct {
	data           Dataset
	syncResolvers  map[fieldKey]ResolveFunc
	asyncResolvers map[fieldKey]ResolveFunc
}

type fieldKey struct {
	objectType string
	field      string
}

var _ executor.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

// WithResolver overrides a synchronous field with fn.
func WithResolver(objectType, field string, fn ResolveFunc) Option {
	return func(r *Runtime) { r.syncResolvers[fieldKey{objectType, field}] = fn }
}

// WithAsyncResolver registers fn for a field resolved in BatchResolveAsync.
// The field must also be flagged on the schema, see MarkAsync.
func WithAsyncResolver(objectType, field string, fn ResolveFunc) Option {
	return func(r *Runtime) { r.asyncResolvers[fieldKey{objectType, field}] = fn }
}

func NewRuntime(data Dataset, opts ...Option) *Runtime {
	r := &Runtime{
		data:           data,
		syncResolvers:  map[fieldKey]ResolveFunc{},
		asyncResolvers: map[fieldKey]ResolveFunc{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MarkAsync flags every field carrying an async override on sch so the
// executor routes it through BatchResolveAsync.
func (r *Runtime) MarkAsync(sch *schema.Schema) {
	for key := range r.asyncResolvers {
		typ := sch.GetType(key.objectType)
		if typ == nil {
			continue
		}
		if f := typ.GetField(key.field); f != nil {
			f.Async = true
		}
	}
}

// ResolveSync resolves a field from an override or the document tree.
// It never performs I/O. A missing document key returns (nil, nil), which
// the executor completes as a GraphQL null for nullable fields.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if fn, ok := r.syncResolvers[fieldKey{objectType, field}]; ok {
		return fn(ctx, source, args)
	}
	return r.lookup(objectType, field, source), nil
}

// lookup reads a field straight from the document tree. Root fields come
// from the dataset, nested fields from the parent document.
func (r *Runtime) lookup(objectType, field string, source any) any {
	if source == nil {
		return r.data[objectType][field]
	}
	doc, ok := source.(map[string]any)
	if !ok {
		panic(fmt.Sprintf("memrt: source for %s.%s must be map[string]any, got %T", objectType, field, source))
	}
	return doc[field]
}

// BatchResolveAsync executes async overrides. Tasks are grouped by
// (objectType, field); groups run in parallel, tasks within a group in
// order. Results are written into pre-determined slots so input ordering
// is preserved.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	type group struct {
		key  fieldKey
		idxs []int
	}
	groups := []group{}
	idxByKey := map[fieldKey]int{}
	for i, t := range tasks {
		k := fieldKey{objectType: t.ObjectType, field: t.Field}
		if gi, ok := idxByKey[k]; ok {
			groups[gi].idxs = append(groups[gi].idxs, i)
		} else {
			idxByKey[k] = len(groups)
			groups = append(groups, group{key: k, idxs: []int{i}})
		}
	}

	run := func(g group) {
		fn, ok := r.asyncResolvers[g.key]
		if !ok {
			panic(fmt.Sprintf("memrt: no async resolver registered for %s.%s", g.key.objectType, g.key.field))
		}
		for _, i := range g.idxs {
			v, err := fn(ctx, tasks[i].Source, tasks[i].Args)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
		}
	}

	if len(groups) > 1 {
		var wg sync.WaitGroup
		wg.Add(len(groups))
		for _, g := range groups {
			go func() {
				defer wg.Done()
				run(g)
			}()
		}
		wg.Wait()
	} else {
		run(groups[0])
	}
	return results
}

// ResolveType reads the __type discriminator from an abstract value's
// document.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	doc, ok := value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("memrt: ResolveType expects map[string]any, got %T", value)
	}
	name, _ := doc["__type"].(string)
	if name == "" {
		return "", fmt.Errorf("memrt: document for %s has no __type discriminator", abstractType)
	}
	return name, nil
}

// SerializeLeafValue serializes a scalar or enum value. Byte slices are
// base64-encoded and timestamps rendered as RFC 3339 strings; other basic
// values pass through.
func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	default:
		return v, nil
	}
}
