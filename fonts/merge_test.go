package fonts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/wudi/pdffont/ir/raw"
)

func TestMergeReplacesAndRemoves(t *testing.T) {
	b := newDocBuilder()
	survivor, _, _ := b.addFont("AAAA+Survivor", []byte("merged program"))
	dup1, dup1Desc, dup1Stream := b.addFont("AAAA+Dup", []byte("dup one"))
	dup2, _, _ := b.addFont("AAAA+Dup", []byte("dup two"))

	b.addPage("", map[string]raw.ObjectRef{"F1": dup1, "F2": survivor})
	b.addPage("", map[string]raw.ObjectRef{"FX": dup2})
	h := b.build(t)

	err := New(h).Merge(nil, map[raw.ObjectRef]raw.ObjectRef{
		dup1: survivor,
		dup2: survivor,
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	for _, ref := range []raw.ObjectRef{dup1, dup1Desc, dup1Stream, dup2} {
		if _, ok := h.Object(ref); ok {
			t.Errorf("object %v survived the merge", ref)
		}
	}
	for i, page := range h.Pages() {
		for name, ref := range pageFontTargets(t, page) {
			if ref != survivor {
				t.Errorf("page %d entry %s points at %v, want %v", i+1, name, ref, survivor)
			}
			if _, ok := h.Object(ref); !ok {
				t.Errorf("page %d entry %s dangles", i+1, name)
			}
		}
	}
}

func TestMergeAppliesWidthAndProgramUpdates(t *testing.T) {
	b := newDocBuilder()
	survivor, _, stream := b.addFont("AAAA+Survivor", []byte("old program"))
	b.addPage("", map[string]raw.ObjectRef{"F1": survivor})
	h := b.build(t)

	// Simulate a post-decode stream so the rewrite has filters to drop.
	obj, _ := h.Object(stream)
	obj.(*raw.StreamObj).Dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))

	newProgram := []byte("subset program with merged glyphs")
	update := WidthUpdate{
		Ref:     survivor,
		W:       WidthArray{WidthInt(1), WidthArray{WidthInt(500), WidthReal(612.5)}},
		W2:      WidthArray{WidthInt(3), WidthInt(4), WidthInt(880)},
		Program: newProgram,
	}
	if err := New(h).Merge([]WidthUpdate{update}, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	fontDict, _ := h.Object(survivor)
	w, _ := fontDict.(*raw.DictObj).Get(raw.NameLiteral("W"))
	got, err := WidthsFromRaw(w.(raw.Array))
	if err != nil || len(got) != 2 {
		t.Errorf("W after merge = %#v (%v)", got, err)
	}

	streamObj, _ := h.Object(stream)
	s := streamObj.(*raw.StreamObj)
	if !bytes.Equal(s.Data, newProgram) {
		t.Errorf("program bytes = %q, want %q", s.Data, newProgram)
	}
	if _, ok := s.Dict.Get(raw.NameLiteral("Filter")); ok {
		t.Errorf("Filter entry kept after raw byte replacement")
	}
	length, _ := s.Dict.Get(raw.NameLiteral("Length"))
	if n, ok := length.(raw.Number); !ok || n.Int() != int64(len(newProgram)) {
		t.Errorf("Length = %v, want %d", length, len(newProgram))
	}
}

func TestMergeLeavesUntouchedFieldsAlone(t *testing.T) {
	b := newDocBuilder()
	survivor, _, stream := b.addFont("AAAA+Survivor", []byte("original"))
	font := b.doc.Objects[survivor].(*raw.DictObj)
	font.Set(raw.NameLiteral("W"), raw.NewArray(raw.NumberInt(7)))
	b.addPage("", map[string]raw.ObjectRef{"F1": survivor})
	h := b.build(t)

	// Width-only update: program stays, existing W is replaced, W2 never set.
	update := WidthUpdate{Ref: survivor, W: WidthArray{WidthInt(9)}}
	if err := New(h).Merge([]WidthUpdate{update}, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	streamObj, _ := h.Object(stream)
	if data := streamObj.(*raw.StreamObj).Data; !bytes.Equal(data, []byte("original")) {
		t.Errorf("nil Program still rewrote the stream: %q", data)
	}
	if _, ok := font.Get(raw.NameLiteral("W2")); ok {
		t.Errorf("empty W2 update created a W2 entry")
	}
	w, _ := font.Get(raw.NameLiteral("W"))
	arr := w.(*raw.ArrayObj)
	if elem, _ := arr.Get(0); elem.(raw.Number).Int() != 9 {
		t.Errorf("W not replaced: %v", elem)
	}
}

func TestMergeInconsistentInput(t *testing.T) {
	t.Run("no descriptor", func(t *testing.T) {
		b := newDocBuilder()
		font, _, _ := b.addFont("AAAA+Bare", nil)
		b.addPage("", map[string]raw.ObjectRef{"F1": font})
		h := b.build(t)

		update := WidthUpdate{Ref: font, Program: []byte("bytes")}
		if err := New(h).Merge([]WidthUpdate{update}, nil); !errors.Is(err, ErrInconsistentMergeInput) {
			t.Fatalf("expected ErrInconsistentMergeInput, got %v", err)
		}
	})

	t.Run("descriptor without program stream", func(t *testing.T) {
		b := newDocBuilder()
		font, descriptor, _ := b.addFont("BBBB+NoStream", []byte("x"))
		b.doc.Objects[descriptor].(*raw.DictObj).Delete(raw.NameLiteral("FontFile2"))
		b.addPage("", map[string]raw.ObjectRef{"F1": font})
		h := b.build(t)

		update := WidthUpdate{Ref: font, Program: []byte("bytes")}
		if err := New(h).Merge([]WidthUpdate{update}, nil); !errors.Is(err, ErrInconsistentMergeInput) {
			t.Fatalf("expected ErrInconsistentMergeInput, got %v", err)
		}
	})
}

func TestMergeSkipsStaleUpdateRefs(t *testing.T) {
	b := newDocBuilder()
	survivor, _, _ := b.addFont("AAAA+Survivor", nil)
	gone, _, _ := b.addFont("BBBB+Gone", nil)
	b.addPage("", map[string]raw.ObjectRef{"F1": gone, "F2": survivor})
	h := b.build(t)

	// The stale update names the font the same call removes.
	updates := []WidthUpdate{
		{Ref: gone, W: WidthArray{WidthInt(1)}},
		{Ref: survivor, W: WidthArray{WidthInt(2)}},
	}
	if err := New(h).Merge(updates, map[raw.ObjectRef]raw.ObjectRef{gone: survivor}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	font, _ := h.Object(survivor)
	w, _ := font.(*raw.DictObj).Get(raw.NameLiteral("W"))
	if elem, _ := w.(*raw.ArrayObj).Get(0); elem.(raw.Number).Int() != 2 {
		t.Errorf("surviving font W = %v", elem)
	}
}

func TestMergeKeepsUsageConsistent(t *testing.T) {
	b := newDocBuilder()
	survivor, _, _ := b.addFont("AAAA+Survivor", nil)
	dup, _, _ := b.addFont("AAAA+Dup", nil)
	b.addPage("BT /F1 10 Tf ET", map[string]raw.ObjectRef{"F1": dup})
	h := b.build(t)

	m := New(h)
	if err := m.Merge(nil, map[raw.ObjectRef]raw.ObjectRef{dup: survivor}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	used, err := m.Used(context.Background())
	if err != nil {
		t.Fatalf("Used: %v", err)
	}
	if _, ok := used[survivor]; !ok {
		t.Errorf("usage no longer attributes to the surviving font: %v", used)
	}
	if _, ok := used[dup]; ok {
		t.Errorf("usage still attributes to the removed font")
	}
}
