// Package fonts implements font management over a parsed PDF document's
// indirect-object graph: enumerating embedded fonts, discovering which fonts
// page content actually selects, rewriting font references document-wide, and
// removing or merging font objects without corrupting the graph.
package fonts

import (
	"github.com/wudi/pdffont/document"
	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
)

// Manager performs font operations against a single document handle. Calls
// are synchronous; read-only queries may run concurrently with each other but
// never with a mutating call on the same document.
type Manager struct {
	h   *document.Handle
	log observability.Logger
}

type Option func(*Manager)

func WithLogger(l observability.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func New(h *document.Handle, opts ...Option) *Manager {
	m := &Manager{h: h, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// fontProgram resolves a descriptor's embedded font-program stream, checking
// FontFile, FontFile2, and FontFile3 in that order and taking the first
// present.
func (m *Manager) fontProgram(descriptor raw.Dictionary) (raw.Object, raw.ObjectRef, bool) {
	for _, key := range []string{"FontFile", "FontFile2", "FontFile3"} {
		if obj, ref, ok := m.h.IndirectKey(descriptor, key); ok {
			return obj, ref, true
		}
	}
	return nil, raw.ObjectRef{}, false
}
