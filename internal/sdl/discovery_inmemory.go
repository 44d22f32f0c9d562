package sdl

import (
	"context"
	"fmt"

	authz "github.com/bilby91/graphql-guard/internal/authz"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// Document is an SDL document held in memory.
type Document struct {
	Name    string
	Content string
}

// InMemoryDiscovery implements Discovery over documents held in memory.
type InMemoryDiscovery struct {
	metas    map[string]*DocumentMeta
	contents map[string]string
}

// NewInMemoryDiscovery creates a Discovery serving the given documents.
func NewInMemoryDiscovery(docs []Document) *InMemoryDiscovery {
	discovery := &InMemoryDiscovery{
		metas:    make(map[string]*DocumentMeta),
		contents: make(map[string]string),
	}
	for _, doc := range docs {
		discovery.metas[doc.Name] = &DocumentMeta{
			Name:     doc.Name,
			FilePath: doc.Name + ".graphql",
		}
		discovery.contents[doc.Name] = doc.Content
	}
	return discovery
}

// ListDocuments implements Discovery.
func (d *InMemoryDiscovery) ListDocuments(ctx context.Context) ([]*DocumentMeta, error) {
	docs := make([]*DocumentMeta, 0, len(d.metas))
	for _, meta := range d.metas {
		docs = append(docs, meta)
	}
	return docs, nil
}

// ReadDocument implements Discovery.
func (d *InMemoryDiscovery) ReadDocument(ctx context.Context, name string) (string, error) {
	content, exists := d.contents[name]
	if !exists {
		return "", fmt.Errorf("document %q not found", name)
	}
	return content, nil
}

// BuildString builds a single in-memory SDL document.
func BuildString(name, content string) (*schema.Schema, []authz.Binding, error) {
	disc := NewInMemoryDiscovery([]Document{{Name: name, Content: content}})
	return Build(context.Background(), disc)
}
