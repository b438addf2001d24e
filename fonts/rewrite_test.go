package fonts

import (
	"testing"

	"github.com/wudi/pdffont/document"
	"github.com/wudi/pdffont/ir/raw"
)

func pageFontTargets(t *testing.T, page *document.Page) map[string]raw.ObjectRef {
	t.Helper()
	dict, _, _ := page.FontDict()
	if dict == nil {
		return nil
	}
	out := make(map[string]raw.ObjectRef)
	for _, key := range dict.Keys() {
		val, _ := dict.Get(key)
		ref, ok := val.(raw.Reference)
		if !ok {
			t.Fatalf("font entry %s is not a reference", key.Value())
		}
		out[key.Value()] = ref.Ref()
	}
	return out
}

func TestReplaceReferences(t *testing.T) {
	b := newDocBuilder()
	old, _, _ := b.addFont("AAAA+Old", nil)
	replacement, _, _ := b.addFont("AAAA+New", nil)
	untouched, _, _ := b.addFont("BBBB+Keep", nil)

	b.addPage("", map[string]raw.ObjectRef{"F1": old, "F2": untouched})
	b.addPage("", map[string]raw.ObjectRef{"FX": old})
	b.addPage("", map[string]raw.ObjectRef{"G1": untouched})
	h := b.build(t)

	m := New(h)
	m.ReplaceReferences(map[raw.ObjectRef]raw.ObjectRef{old: replacement})

	want := []map[string]raw.ObjectRef{
		{"F1": replacement, "F2": untouched},
		{"FX": replacement},
		{"G1": untouched},
	}
	for i, page := range h.Pages() {
		got := pageFontTargets(t, page)
		for name, ref := range want[i] {
			if got[name] != ref {
				t.Errorf("page %d entry %s = %v, want %v", i+1, name, got[name], ref)
			}
		}
		if len(got) != len(want[i]) {
			t.Errorf("page %d has %d font entries, want %d", i+1, len(got), len(want[i]))
		}
	}
}

func TestReplaceReferencesIdempotent(t *testing.T) {
	b := newDocBuilder()
	old, _, _ := b.addFont("AAAA+Old", nil)
	replacement, _, _ := b.addFont("AAAA+New", nil)
	b.addPage("", map[string]raw.ObjectRef{"F1": old})
	h := b.build(t)

	m := New(h)
	mapping := map[raw.ObjectRef]raw.ObjectRef{old: replacement}
	m.ReplaceReferences(mapping)
	first := pageFontTargets(t, h.Pages()[0])

	m.ReplaceReferences(mapping)
	second := pageFontTargets(t, h.Pages()[0])

	if len(first) != len(second) || first["F1"] != second["F1"] || second["F1"] != replacement {
		t.Errorf("second pass changed the resources: %v then %v", first, second)
	}
}

func TestReplaceReferencesIndirectFontDict(t *testing.T) {
	b := newDocBuilder()
	old, _, _ := b.addFont("AAAA+Old", nil)
	replacement, _, _ := b.addFont("AAAA+New", nil)

	// Font resources held through an indirect reference rather than inline.
	fontDict := raw.Dict()
	fontDict.Set(raw.NameLiteral("F1"), raw.Ref(old.Num, old.Gen))
	fontDictRef := b.add(fontDict)

	pageRef := b.addPage("", nil)
	page := b.doc.Objects[pageRef].(*raw.DictObj)
	resources, _ := page.Get(raw.NameLiteral("Resources"))
	resources.(*raw.DictObj).Set(raw.NameLiteral("Font"), raw.Ref(fontDictRef.Num, fontDictRef.Gen))
	h := b.build(t)

	New(h).ReplaceReferences(map[raw.ObjectRef]raw.ObjectRef{old: replacement})

	got := pageFontTargets(t, h.Pages()[0])
	if got["F1"] != replacement {
		t.Errorf("indirect font dict entry = %v, want %v", got["F1"], replacement)
	}
	// The rewrite must land in the shared graph slot, not a detached copy.
	stored, _ := h.Object(fontDictRef)
	val, _ := stored.(*raw.DictObj).Get(raw.NameLiteral("F1"))
	if ref, ok := val.(raw.Reference); !ok || ref.Ref() != replacement {
		t.Errorf("graph slot %v still holds %v", fontDictRef, val)
	}
}

func TestReplaceReferencesKeepsUnmappedEntries(t *testing.T) {
	b := newDocBuilder()
	only, _, _ := b.addFont("AAAA+Only", nil)
	b.addPage("", map[string]raw.ObjectRef{"F1": only})
	h := b.build(t)

	New(h).ReplaceReferences(map[raw.ObjectRef]raw.ObjectRef{})

	got := pageFontTargets(t, h.Pages()[0])
	if got["F1"] != only {
		t.Errorf("empty mapping touched the resources: %v", got)
	}
}
