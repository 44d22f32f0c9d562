package sdl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	authz "github.com/bilby91/graphql-guard/internal/authz"
	schema "github.com/bilby91/graphql-guard/internal/schema"
)

// FileSystemDiscovery implements Discovery over a directory tree of
// .graphql files.
type FileSystemDiscovery struct {
	docFilePaths map[string]string
	docMetas     map[string]*DocumentMeta
}

// NewFileSystemDiscovery walks rootDir and registers every .graphql
// file it finds. A file's document name is its path relative to
// rootDir without the extension.
func NewFileSystemDiscovery(ctx context.Context, rootDir string) (*FileSystemDiscovery, error) {
	discovery := &FileSystemDiscovery{
		docFilePaths: make(map[string]string),
		docMetas:     make(map[string]*DocumentMeta),
	}

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(d.Name()) != ".graphql" {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %q: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.ToSlash(relPath), ".graphql")
		discovery.docFilePaths[name] = path
		discovery.docMetas[name] = &DocumentMeta{
			Name:     name,
			FilePath: relPath,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root directory %q: %w", rootDir, err)
	}
	return discovery, nil
}

// ListDocuments returns the metadata of every discovered document.
func (d *FileSystemDiscovery) ListDocuments(ctx context.Context) ([]*DocumentMeta, error) {
	docs := make([]*DocumentMeta, 0, len(d.docMetas))
	for _, meta := range d.docMetas {
		docs = append(docs, meta)
	}
	return docs, nil
}

// ReadDocument reads the SDL content of the named document.
func (d *FileSystemDiscovery) ReadDocument(ctx context.Context, name string) (string, error) {
	fp, ok := d.docFilePaths[name]
	if !ok {
		return "", fmt.Errorf("document %q not found", name)
	}
	content, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("failed to read document %q: %w", name, err)
	}
	return string(content), nil
}

// Load discovers .graphql files under rootDir and builds them.
func Load(rootDir string) (*schema.Schema, []authz.Binding, error) {
	discovery, err := NewFileSystemDiscovery(context.Background(), rootDir)
	if err != nil {
		return nil, nil, err
	}
	return Build(context.Background(), discovery)
}
