// Package sdl builds executable schemas from GraphQL SDL documents.
//
// Documents come from a Discovery (filesystem or in-memory). Build
// merges their definitions and extensions into a schema.Schema and
// extracts the authorization annotations (@guard, @visible) into
// authz.Bindings. The annotations are configuration, not schema
// surface: they never appear in the built schema, its rendering or
// its introspection.
package sdl

import (
	"context"
)

// DocumentMeta describes one discovered SDL document.
type DocumentMeta struct {
	Name     string
	FilePath string
}

// Discovery lists SDL documents and reads their contents.
type Discovery interface {
	ListDocuments(ctx context.Context) ([]*DocumentMeta, error)
	ReadDocument(ctx context.Context, name string) (string, error)
}
