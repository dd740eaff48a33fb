package sourcing_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/iliassehm/conformity/internal/domain"
)

// mockMaterializer answers materialization calls from fixed tables.
type mockMaterializer struct {
	templates    map[string]*domain.MaterializedDocument
	ged          map[string]*domain.MaterializedDocument
	templateErr  error
	gedErr       error
	templateCall atomic.Int32
	gedCall      atomic.Int32
}

func (m *mockMaterializer) MaterializeFromTemplate(
	_ context.Context, _ string, refs []domain.TemplateRef,
) ([]*domain.MaterializedDocument, error) {
	m.templateCall.Add(1)
	if m.templateErr != nil {
		return nil, m.templateErr
	}
	out := make([]*domain.MaterializedDocument, len(refs))
	for i, r := range refs {
		out[i] = m.templates[r.ID]
	}
	return out, nil
}

func (m *mockMaterializer) MaterializeFromGed(
	_ context.Context, _ string, refs []domain.GedRef,
) ([]*domain.MaterializedDocument, error) {
	m.gedCall.Add(1)
	if m.gedErr != nil {
		return nil, m.gedErr
	}
	out := make([]*domain.MaterializedDocument, len(refs))
	for i, r := range refs {
		out[i] = m.ged[r.ID]
	}
	return out, nil
}

// mockFetcher serves URLs from a map; unknown URLs fail.
type mockFetcher struct {
	mu    sync.Mutex
	blobs map[string][]byte
	calls []string
}

var errFetch = errors.New("fetch failed")

func (f *mockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	b, ok := f.blobs[url]
	if !ok {
		return nil, errFetch
	}
	return b, nil
}

func (f *mockFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
