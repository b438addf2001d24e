package fonts

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
)

// WidthUpdate carries the consolidated metrics and program bytes for one
// surviving font after a merge. A nil Program leaves the embedded stream
// untouched; empty W/W2 leave the corresponding dictionary entry untouched.
type WidthUpdate struct {
	Ref     raw.ObjectRef
	W       WidthArray
	W2      WidthArray
	Program []byte
}

// Merge deduplicates fonts: every replacement old -> new removes the old font
// (with its descriptor and program stream) and redirects all page resources
// from old to new in a single document-wide rewrite pass, batched so N
// replacements cost one scan instead of N. Width updates then overwrite the
// surviving fonts' W/W2 entries and embedded program bytes.
//
// The removal-then-rewrite ordering guarantees no page observes a reference
// to a deleted object once Merge returns. No atomicity is promised across
// input items: on error, steps already completed stay applied.
func (m *Manager) Merge(updates []WidthUpdate, replacements map[raw.ObjectRef]raw.ObjectRef) error {
	refMap := make(map[raw.ObjectRef]raw.ObjectRef, len(replacements))
	olds := maps.Keys(replacements)
	sort.Slice(olds, func(i, j int) bool {
		if olds[i].Num != olds[j].Num {
			return olds[i].Num < olds[j].Num
		}
		return olds[i].Gen < olds[j].Gen
	})
	for _, old := range olds {
		m.Remove(old)
		refMap[old] = replacements[old]
	}
	if len(refMap) > 0 {
		m.ReplaceReferences(refMap)
	}

	for _, update := range updates {
		obj, ok := m.h.Object(update.Ref)
		if !ok {
			// Entries address surviving fonts; a stale ref is skipped.
			m.log.Debug("merge update for absent font", observability.String("ref", update.Ref.String()))
			continue
		}
		fontDict, ok := obj.(*raw.DictObj)
		if !ok {
			return fmt.Errorf("%w: %v is not a font dictionary", ErrGraphAccess, update.Ref)
		}
		if len(update.W) > 0 {
			fontDict.Set(raw.NameLiteral("W"), update.W.Raw())
		}
		if len(update.W2) > 0 {
			fontDict.Set(raw.NameLiteral("W2"), update.W2.Raw())
		}
		if update.Program == nil {
			continue
		}
		descriptor := m.h.DictKey(fontDict, "FontDescriptor")
		if descriptor == nil {
			return fmt.Errorf("%w: font %v has no descriptor", ErrInconsistentMergeInput, update.Ref)
		}
		_, streamRef, ok := m.fontProgram(descriptor)
		if !ok {
			return fmt.Errorf("%w: font %v descriptor has no program stream", ErrInconsistentMergeInput, update.Ref)
		}
		if err := m.h.ReplaceStreamData(streamRef, update.Program); err != nil {
			return fmt.Errorf("%w: font %v: %v", ErrGraphAccess, update.Ref, err)
		}
	}
	m.log.Info("fonts merged",
		observability.Int("replacements", len(refMap)),
		observability.Int("width_updates", len(updates)))
	return nil
}
