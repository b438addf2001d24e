package document

import (
	"context"

	"github.com/wudi/pdffont/ir/raw"
)

// Page couples a page dictionary with the resources in effect for it (its own
// or inherited from an ancestor Pages node).
type Page struct {
	h         *Handle
	dict      *raw.DictObj
	resources raw.Object
}

func (p *Page) Dict() *raw.DictObj { return p.dict }

// Resources resolves the page's resource dictionary.
func (p *Page) Resources() *raw.DictObj {
	return p.h.asDict(p.resources)
}

// FontDict resolves the Font sub-dictionary of the page resources. When the
// sub-dictionary is held through an indirect reference, ref carries its graph
// slot and indirect is true; rewrites then go through the graph rather than
// the resources entry.
func (p *Page) FontDict() (dict *raw.DictObj, ref raw.ObjectRef, indirect bool) {
	res := p.Resources()
	if res == nil {
		return nil, raw.ObjectRef{}, false
	}
	val, ok := res.Get(raw.NameLiteral("Font"))
	if !ok {
		return nil, raw.ObjectRef{}, false
	}
	if r, ok := val.(raw.Reference); ok {
		if d := p.h.asDict(val); d != nil {
			return d, r.Ref(), true
		}
		return nil, raw.ObjectRef{}, false
	}
	if d, ok := val.(*raw.DictObj); ok {
		return d, raw.ObjectRef{}, false
	}
	return nil, raw.ObjectRef{}, false
}

// SetFontDict reassigns the Font sub-dictionary in one step, either in the
// resources entry or in the graph slot the entry points at.
func (p *Page) SetFontDict(dict *raw.DictObj, ref raw.ObjectRef, indirect bool) {
	if indirect {
		p.h.Put(ref, dict)
		return
	}
	if res := p.Resources(); res != nil {
		res.Set(raw.NameLiteral("Font"), dict)
	}
}

// FontRef resolves a local resource name (e.g. "F1") against the page's Font
// sub-dictionary to the referenced font object.
func (p *Page) FontRef(name string) (raw.ObjectRef, bool) {
	dict, _, _ := p.FontDict()
	if dict == nil {
		return raw.ObjectRef{}, false
	}
	val, ok := dict.Get(raw.NameLiteral(name))
	if !ok {
		return raw.ObjectRef{}, false
	}
	if r, ok := val.(raw.Reference); ok {
		return r.Ref(), true
	}
	return raw.ObjectRef{}, false
}

// Contents returns the page's decoded content stream segments in order.
// A Contents array contributes one segment per element.
func (p *Page) Contents(ctx context.Context) ([][]byte, error) {
	val, ok := p.dict.Get(raw.NameLiteral("Contents"))
	if !ok {
		return nil, nil
	}
	return p.h.contentSegments(ctx, val)
}

func (h *Handle) contentSegments(ctx context.Context, obj raw.Object) ([][]byte, error) {
	switch v := obj.(type) {
	case raw.Reference:
		target, ok := h.doc.Objects[v.Ref()]
		if !ok {
			return nil, nil
		}
		if arr, ok := target.(*raw.ArrayObj); ok {
			return h.contentSegments(ctx, arr)
		}
		data, err := h.DecodedStream(ctx, v.Ref())
		if err != nil {
			return nil, err
		}
		return [][]byte{data}, nil
	case *raw.ArrayObj:
		var out [][]byte
		for _, item := range v.Items {
			segs, err := h.contentSegments(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, segs...)
		}
		return out, nil
	case raw.Stream:
		data := v.RawData()
		names, params := filtersFor(v)
		if len(names) == 0 || h.pipeline == nil {
			out := make([]byte, len(data))
			copy(out, data)
			return [][]byte{out}, nil
		}
		decoded, err := h.pipeline.Decode(ctx, data, names, params)
		if err != nil {
			return nil, err
		}
		return [][]byte{decoded}, nil
	}
	return nil, nil
}
