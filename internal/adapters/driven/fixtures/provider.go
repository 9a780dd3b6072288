package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Ensure providers implement the interface.
var (
	_ driven.FixtureProvider = (*FileProvider)(nil)
	_ driven.FixtureProvider = (*MapProvider)(nil)
)

// FileProvider reads fixtures from <dir>/json/<name>.json.
type FileProvider struct {
	root string
}

// NewFileProvider creates a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{root: filepath.Join(dir, "json")}
}

// Fixture returns the body of the named fixture.
func (p *FileProvider) Fixture(_ context.Context, name string) ([]byte, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: invalid fixture name %q", domain.ErrInvalidInput, name)
	}
	data, err := os.ReadFile(filepath.Join(p.root, name+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFixtureNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	return data, nil
}

// Names lists the available fixtures.
func (p *FileProvider) Names() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.root, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	return names, nil
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

// MapProvider serves fixtures from memory.
type MapProvider struct {
	mu       sync.RWMutex
	fixtures map[string][]byte
}

// NewMapProvider creates a provider holding fixtures.
func NewMapProvider(fixtures map[string]string) *MapProvider {
	p := &MapProvider{fixtures: make(map[string][]byte, len(fixtures))}
	for name, body := range fixtures {
		p.fixtures[name] = []byte(body)
	}
	return p
}

// Set adds or replaces a fixture.
func (p *MapProvider) Set(name, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fixtures[name] = []byte(body)
}

// Fixture returns the body of the named fixture.
func (p *MapProvider) Fixture(_ context.Context, name string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.fixtures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFixtureNotFound, name)
	}
	return data, nil
}
