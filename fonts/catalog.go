package fonts

import (
	"context"
	"fmt"

	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
)

// Record is a descriptive, non-owning snapshot of one font dictionary taken
// at query time.
type Record struct {
	BaseFont string
	Subtype  string
	Ref      raw.ObjectRef

	// StreamRef points at the embedded font-program stream reachable through
	// the font's descriptor, when one exists.
	StreamRef *raw.ObjectRef

	// Data holds the decoded program bytes; only materialized on request.
	Data []byte

	// DescendantFont points at the first entry of DescendantFonts for
	// composite fonts that carry no descriptor of their own.
	DescendantFont *raw.ObjectRef

	// Encoding is recorded only when the entry is name-valued.
	Encoding string

	W  WidthArray
	W2 WidthArray
}

// List walks every indirect object and assembles a record per font
// dictionary, in ascending (Num, Gen) order. A font dictionary is any
// dictionary with Type = Font and a BaseFont entry. When includeData is set,
// each embedded font program's filtered bytes are decoded into Data.
//
// Any graph access failure aborts the whole enumeration; no partial catalog
// is returned.
func (m *Manager) List(ctx context.Context, includeData bool) ([]Record, error) {
	var out []Record
	for _, ref := range m.h.Refs() {
		obj, _ := m.h.Object(ref)
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			continue
		}
		if nameKey(dict, "Type") != "Font" {
			continue
		}
		if _, ok := dict.Get(raw.NameLiteral("BaseFont")); !ok {
			continue
		}
		rec, err := m.buildRecord(ctx, ref, dict, includeData)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	m.log.Debug("font catalog built", observability.Int(observability.MetricFontCount, len(out)))
	return out, nil
}

func (m *Manager) buildRecord(ctx context.Context, ref raw.ObjectRef, dict *raw.DictObj, includeData bool) (Record, error) {
	rec := Record{Ref: ref}

	base, ok := nameKeyOK(dict, "BaseFont")
	if !ok {
		return rec, fmt.Errorf("%w: font %v BaseFont is not a name", ErrGraphAccess, ref)
	}
	rec.BaseFont = base

	subtype, ok := nameKeyOK(dict, "Subtype")
	if !ok {
		return rec, fmt.Errorf("%w: font %v has no Subtype name", ErrGraphAccess, ref)
	}
	rec.Subtype = subtype

	var err error
	if rec.W, err = m.widthsKey(dict, ref, "W"); err != nil {
		return rec, err
	}
	if rec.W2, err = m.widthsKey(dict, ref, "W2"); err != nil {
		return rec, err
	}

	if enc, ok := dict.Get(raw.NameLiteral("Encoding")); ok {
		if name, ok := enc.(raw.Name); ok {
			rec.Encoding = name.Value()
		}
	}

	if descriptor := m.h.DictKey(dict, "FontDescriptor"); descriptor != nil {
		if _, streamRef, ok := m.fontProgram(descriptor); ok {
			rec.StreamRef = &streamRef
			if includeData {
				data, err := m.h.DecodedStream(ctx, streamRef)
				if err != nil {
					return rec, fmt.Errorf("%w: font %v program stream: %v", ErrGraphAccess, ref, err)
				}
				rec.Data = data
			}
		}
	} else if df, ok := dict.Get(raw.NameLiteral("DescendantFonts")); ok {
		arr, _ := m.h.Resolve(df).(*raw.ArrayObj)
		if arr == nil || arr.Len() == 0 {
			return rec, fmt.Errorf("%w: font %v has unusable DescendantFonts", ErrGraphAccess, ref)
		}
		first, _ := arr.Get(0)
		r, ok := first.(raw.Reference)
		if !ok {
			return rec, fmt.Errorf("%w: font %v DescendantFonts[0] is not a reference", ErrGraphAccess, ref)
		}
		descendant := r.Ref()
		rec.DescendantFont = &descendant
	}

	return rec, nil
}

func (m *Manager) widthsKey(dict *raw.DictObj, ref raw.ObjectRef, key string) (WidthArray, error) {
	val, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return nil, nil
	}
	arr, _ := m.h.Resolve(val).(*raw.ArrayObj)
	if arr == nil {
		return nil, fmt.Errorf("%w: font %v %s is not an array", ErrGraphAccess, ref, key)
	}
	w, err := WidthsFromRaw(arr)
	if err != nil {
		return nil, fmt.Errorf("font %v %s: %w", ref, key, err)
	}
	return w, nil
}

func nameKey(dict *raw.DictObj, key string) string {
	v, _ := nameKeyOK(dict, key)
	return v
}

func nameKeyOK(dict *raw.DictObj, key string) (string, bool) {
	val, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return "", false
	}
	name, ok := val.(raw.Name)
	if !ok {
		return "", false
	}
	return name.Value(), true
}
