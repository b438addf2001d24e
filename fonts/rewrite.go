package fonts

import (
	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
)

// ReplaceReferences redirects font references in every page's Font resource
// sub-dictionary according to mapping. Entries whose reference is absent from
// the mapping are left untouched; the pass never deletes resource entries.
// Each page's sub-dictionary is rebuilt and reassigned in one step, so no
// reader observes a half-rewritten page. Running the pass twice with the same
// mapping is a no-op the second time.
func (m *Manager) ReplaceReferences(mapping map[raw.ObjectRef]raw.ObjectRef) {
	if len(mapping) == 0 {
		return
	}
	rewritten := 0
	for _, page := range m.h.Pages() {
		fontDict, ref, indirect := page.FontDict()
		if fontDict == nil {
			continue
		}
		rebuilt := fontDict.Clone()
		changed := false
		for name, val := range fontDict.KV {
			r, ok := val.(raw.Reference)
			if !ok {
				continue
			}
			replacement, ok := mapping[r.Ref()]
			if !ok {
				continue
			}
			rebuilt.KV[name] = raw.Ref(replacement.Num, replacement.Gen)
			changed = true
		}
		if changed {
			page.SetFontDict(rebuilt, ref, indirect)
			rewritten++
		}
	}
	m.log.Debug("font references rewritten", observability.Int("pages", rewritten))
}
