package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source produces one extract table
type Source interface {
	Name() string
	Load(ctx context.Context) (*Table, error)
}

// BytesSource is an extract already held in memory, e.g. an uploaded file
type BytesSource struct {
	name    string
	payload []byte
	loader  *Loader
}

// NewBytesSource wraps an in-memory payload
func NewBytesSource(name string, payload []byte, loader *Loader) *BytesSource {
	return &BytesSource{name: name, payload: payload, loader: loader}
}

func (s *BytesSource) Name() string { return s.name }

func (s *BytesSource) Load(ctx context.Context) (*Table, error) {
	return s.loader.Parse(s.name, s.payload)
}

// FileSource reads an extract from the local filesystem
type FileSource struct {
	name   string
	path   string
	loader *Loader
}

// NewFileSource creates a source for a local extract file
func NewFileSource(name, path string, loader *Loader) *FileSource {
	return &FileSource{name: name, path: path, loader: loader}
}

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) Load(ctx context.Context) (*Table, error) {
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s extract: %w", s.name, err)
	}
	return s.loader.Parse(s.name, payload)
}

// ResolveSource maps a command line reference to a source: http(s) URLs are
// fetched with the retrying client, anything else is a local path.
func ResolveSource(name, ref string, loader *Loader, client *HTTPClient) Source {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(name, ref, loader, client)
	}
	return NewFileSource(name, ref, loader)
}
