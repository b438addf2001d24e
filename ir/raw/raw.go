package raw

import (
	"context"
	"fmt"
	"io"
)

// ObjectRef uniquely identifies an indirect PDF object by object number and
// generation number. It is comparable and is the key type of Document.Objects.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Key packs the reference into a single uint64: object number in the low 32
// bits, generation number above. The packing is part of the host boundary
// contract and must not vary across platforms.
func (r ObjectRef) Key() uint64 {
	return uint64(uint32(r.Num)) | uint64(uint32(r.Gen))<<32
}

// FromKey is the inverse of Key.
func FromKey(k uint64) ObjectRef {
	return ObjectRef{Num: int(uint32(k)), Gen: int(uint32(k >> 32))}
}

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Delete(key Name)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a raw (undecoded) PDF stream.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	SetRawData(data []byte)
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Document is the root container for raw PDF objects. The object map is the
// sole shared mutable resource of the font subsystem; callers serialize
// mutating access.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer Dictionary
	Version string // e.g. "1.7"
}

// NewDocument returns an empty document with an initialized object map.
func NewDocument() *Document {
	return &Document{Objects: make(map[ObjectRef]Object)}
}

// Resolve follows obj once if it is an indirect reference, returning the
// target object. Direct objects are returned unchanged. The second result is
// false only when obj is a reference whose target is absent from the graph.
func (d *Document) Resolve(obj Object) (Object, bool) {
	ref, ok := obj.(Reference)
	if !ok {
		return obj, true
	}
	target, ok := d.Objects[ref.Ref()]
	return target, ok
}

// Delete removes the object stored under ref, if any.
func (d *Document) Delete(ref ObjectRef) {
	delete(d.Objects, ref)
}

// Parser converts bytes into a raw Document.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*Document, error)
}
