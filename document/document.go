package document

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wudi/pdffont/filters"
	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
)

// Handle wraps a raw document with page-level and indirect-key accessors.
// It owns no objects; the graph belongs to the raw document and is borrowed
// for the duration of each call. Mutating calls must not run concurrently
// with any other call on the same handle.
type Handle struct {
	doc      *raw.Document
	pipeline *filters.Pipeline
	pages    []*Page
	log      observability.Logger
}

type Option func(*Handle)

func WithLogger(l observability.Logger) Option {
	return func(h *Handle) { h.log = l }
}

func WithPipeline(p *filters.Pipeline) Option {
	return func(h *Handle) { h.pipeline = p }
}

// Open builds a handle over doc. Pages are located through the trailer's
// Root -> Pages tree; documents without a usable trailer fall back to scanning
// the graph for page dictionaries in (Num, Gen) order.
func Open(doc *raw.Document, opts ...Option) (*Handle, error) {
	if doc == nil {
		return nil, errors.New("raw document is required")
	}
	if doc.Objects == nil {
		return nil, errors.New("raw document missing object map")
	}
	h := &Handle{
		doc:      doc,
		pipeline: filters.Default(filters.Limits{}),
		log:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pages = collectPages(doc)
	for _, p := range h.pages {
		p.h = h
	}
	return h, nil
}

// Raw exposes the underlying document.
func (h *Handle) Raw() *raw.Document { return h.doc }

func (h *Handle) PageCount() int { return len(h.pages) }

// Page returns the i-th page, 0-based.
func (h *Handle) Page(i int) (*Page, error) {
	if i < 0 || i >= len(h.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", i, len(h.pages))
	}
	return h.pages[i], nil
}

func (h *Handle) Pages() []*Page { return h.pages }

// Object looks up an indirect object by reference.
func (h *Handle) Object(ref raw.ObjectRef) (raw.Object, bool) {
	obj, ok := h.doc.Objects[ref]
	return obj, ok
}

// Put stores obj under ref, replacing any previous object.
func (h *Handle) Put(ref raw.ObjectRef, obj raw.Object) {
	h.doc.Objects[ref] = obj
}

// Delete removes the object stored under ref.
func (h *Handle) Delete(ref raw.ObjectRef) {
	h.doc.Delete(ref)
}

// ObjectCount reports the number of indirect objects in the graph.
func (h *Handle) ObjectCount() int { return len(h.doc.Objects) }

// Refs returns every object reference in ascending (Num, Gen) order. The
// ordering makes whole-graph traversals deterministic for a given document.
func (h *Handle) Refs() []raw.ObjectRef {
	refs := make([]raw.ObjectRef, 0, len(h.doc.Objects))
	for ref := range h.doc.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}

// Resolve follows obj once if it is a reference.
func (h *Handle) Resolve(obj raw.Object) raw.Object {
	resolved, _ := h.doc.Resolve(obj)
	return resolved
}

// IndirectKey follows the reference stored under key in dict and returns the
// target object together with its own reference. It reports false when the
// key is absent, holds a direct value, or points at a missing object.
func (h *Handle) IndirectKey(dict raw.Dictionary, key string) (raw.Object, raw.ObjectRef, bool) {
	if dict == nil {
		return nil, raw.ObjectRef{}, false
	}
	val, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return nil, raw.ObjectRef{}, false
	}
	ref, ok := val.(raw.Reference)
	if !ok {
		return nil, raw.ObjectRef{}, false
	}
	target, ok := h.doc.Objects[ref.Ref()]
	if !ok {
		return nil, raw.ObjectRef{}, false
	}
	return target, ref.Ref(), true
}

// DictKey resolves the value stored under key in dict to a dictionary,
// following one level of indirection. Stream objects yield their dictionary.
func (h *Handle) DictKey(dict raw.Dictionary, key string) *raw.DictObj {
	if dict == nil {
		return nil
	}
	val, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return nil
	}
	return h.asDict(val)
}

func (h *Handle) asDict(obj raw.Object) *raw.DictObj {
	resolved := h.Resolve(obj)
	if d, ok := resolved.(*raw.DictObj); ok {
		return d
	}
	if s, ok := resolved.(raw.Stream); ok {
		if d, ok := s.Dictionary().(*raw.DictObj); ok {
			return d
		}
	}
	return nil
}

func (h *Handle) asArray(obj raw.Object) *raw.ArrayObj {
	resolved := h.Resolve(obj)
	if a, ok := resolved.(*raw.ArrayObj); ok {
		return a
	}
	return nil
}

// DecodedStream returns the filtered (decompressed) payload of the stream
// stored under ref.
func (h *Handle) DecodedStream(ctx context.Context, ref raw.ObjectRef) ([]byte, error) {
	obj, ok := h.doc.Objects[ref]
	if !ok {
		return nil, fmt.Errorf("object %v not found", ref)
	}
	stream, ok := obj.(raw.Stream)
	if !ok {
		return nil, fmt.Errorf("object %v is not a stream", ref)
	}
	data := stream.RawData()
	names, params := filters.ExtractFilters(stream.Dictionary())
	if len(names) == 0 || h.pipeline == nil {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	decoded, err := h.pipeline.Decode(ctx, data, names, params)
	if err != nil {
		return nil, fmt.Errorf("decode %v for %v: %w", names, ref, err)
	}
	return decoded, nil
}

// ReplaceStreamData overwrites the payload of the stream stored under ref
// with plain bytes. Filter bookkeeping is dropped and Length updated so the
// dictionary stays consistent with the stored data.
func (h *Handle) ReplaceStreamData(ref raw.ObjectRef, data []byte) error {
	obj, ok := h.doc.Objects[ref]
	if !ok {
		return fmt.Errorf("object %v not found", ref)
	}
	stream, ok := obj.(raw.Stream)
	if !ok {
		return fmt.Errorf("object %v is not a stream", ref)
	}
	stream.SetRawData(data)
	dict := stream.Dictionary()
	dict.Delete(raw.NameLiteral("Filter"))
	dict.Delete(raw.NameLiteral("DecodeParms"))
	dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))
	return nil
}
