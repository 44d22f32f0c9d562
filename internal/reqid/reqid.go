// Package reqid stamps each request with a process-unique ID so events
// fired at different stages of one request can be correlated.
package reqid

import (
	"context"
	"sync/atomic"
	"time"
)

// key is the context key for the request ID.
type key struct{}

var lastID atomic.Int64

func init() { lastID.Store(time.Now().UnixNano()) }

// NewContext returns a copy of parent carrying a fresh request ID, and
// the ID itself. IDs increase monotonically within the process, seeded
// from the start time so they stay distinct across restarts.
func NewContext(parent context.Context) (context.Context, int64) {
	id := lastID.Add(1)
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID stamped by NewContext.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(key{}).(int64)
	return id, ok
}
