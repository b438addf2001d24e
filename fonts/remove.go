package fonts

import (
	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
)

// Remove deletes the font stored under ref together with its descriptor and
// embedded font-program stream, as a unit: the program stream goes first,
// then the descriptor, then the font itself. A font without a descriptor
// loses only its own object. The result reports whether the font existed.
//
// Page resources still referring to the removed font are left dangling;
// callers rewrite references before or immediately after removal (the merge
// orchestrator does this).
func (m *Manager) Remove(ref raw.ObjectRef) bool {
	obj, ok := m.h.Object(ref)
	if !ok {
		return false
	}
	fontDict, ok := obj.(*raw.DictObj)
	if !ok {
		return false
	}
	if descriptor, descRef, ok := m.h.IndirectKey(fontDict, "FontDescriptor"); ok {
		if descDict, ok := descriptor.(*raw.DictObj); ok {
			if _, streamRef, ok := m.fontProgram(descDict); ok {
				m.h.Delete(streamRef)
			}
			m.h.Delete(descRef)
		}
	}
	m.h.Delete(ref)
	return true
}

// RemoveAll removes each listed font. Missing references are skipped; there
// is no rollback of earlier removals when a later entry is absent.
func (m *Manager) RemoveAll(refs []raw.ObjectRef) int {
	removed := 0
	for _, ref := range refs {
		if m.Remove(ref) {
			removed++
		}
	}
	m.log.Info("fonts removed", observability.Int(observability.MetricFontsRemoved, removed))
	return removed
}
