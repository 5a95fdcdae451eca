package emit

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/plan"
)

// MemoryEmitter keeps everything it is handed, in order.
type MemoryEmitter struct {
	mu        sync.Mutex
	pages     []plan.Page
	redirects []plan.Redirect
}

// NewMemoryEmitter returns an empty emitter.
func NewMemoryEmitter() *MemoryEmitter { return &MemoryEmitter{} }

func (m *MemoryEmitter) CreatePage(ctx context.Context, page plan.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, page)
	return nil
}

func (m *MemoryEmitter) CreateRedirect(ctx context.Context, r plan.Redirect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirects = append(m.redirects, r)
	return nil
}

// Pages returns a copy of the emitted pages.
func (m *MemoryEmitter) Pages() []plan.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]plan.Page(nil), m.pages...)
}

// Redirects returns a copy of the emitted redirects.
func (m *MemoryEmitter) Redirects() []plan.Redirect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]plan.Redirect(nil), m.redirects...)
}

// Page returns the emitted page at path.
func (m *MemoryEmitter) Page(path string) (plan.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages {
		if p.Path == path {
			return p, true
		}
	}
	return plan.Page{}, false
}

func (m *MemoryEmitter) Stats() (pages, redirects int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages), len(m.redirects)
}
