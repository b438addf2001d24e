package fonts

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/wudi/pdffont/document"
	"github.com/wudi/pdffont/ir/raw"
)

// docBuilder assembles an in-memory object graph with a page tree, the shape
// parsed documents take after loading.
type docBuilder struct {
	doc     *raw.Document
	nextNum int
	pages   []raw.ObjectRef
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: raw.NewDocument(), nextNum: 10}
}

func (b *docBuilder) add(obj raw.Object) raw.ObjectRef {
	ref := raw.ObjectRef{Num: b.nextNum}
	b.nextNum++
	b.doc.Objects[ref] = obj
	return ref
}

// addFont inserts a simple font dictionary. When program is non-nil, a
// descriptor and an embedded FontFile2 stream holding program are attached.
// Returned refs are font, descriptor, stream (zero refs when absent).
func (b *docBuilder) addFont(baseFont string, program []byte) (font, descriptor, stream raw.ObjectRef) {
	fontDict := raw.Dict()
	fontDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Font"))
	fontDict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("TrueType"))
	fontDict.Set(raw.NameLiteral("BaseFont"), raw.NameLiteral(baseFont))
	if program != nil {
		streamDict := raw.Dict()
		streamDict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(program))))
		stream = b.add(raw.NewStream(streamDict, program))

		descDict := raw.Dict()
		descDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("FontDescriptor"))
		descDict.Set(raw.NameLiteral("FontName"), raw.NameLiteral(baseFont))
		descDict.Set(raw.NameLiteral("FontFile2"), raw.Ref(stream.Num, stream.Gen))
		descriptor = b.add(descDict)

		fontDict.Set(raw.NameLiteral("FontDescriptor"), raw.Ref(descriptor.Num, descriptor.Gen))
	}
	font = b.add(fontDict)
	return font, descriptor, stream
}

// addPage inserts a page whose content stream is the given source and whose
// Font resources map local names to font references.
func (b *docBuilder) addPage(content string, fontsByName map[string]raw.ObjectRef) raw.ObjectRef {
	contentDict := raw.Dict()
	contentDict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(content))))
	contentRef := b.add(raw.NewStream(contentDict, []byte(content)))

	fontDict := raw.Dict()
	for name, ref := range fontsByName {
		fontDict.Set(raw.NameLiteral(name), raw.Ref(ref.Num, ref.Gen))
	}
	resources := raw.Dict()
	resources.Set(raw.NameLiteral("Font"), fontDict)

	pageDict := raw.Dict()
	pageDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
	pageDict.Set(raw.NameLiteral("Resources"), resources)
	pageDict.Set(raw.NameLiteral("Contents"), raw.Ref(contentRef.Num, contentRef.Gen))
	pageRef := b.add(pageDict)
	b.pages = append(b.pages, pageRef)
	return pageRef
}

// build closes the page tree with a Pages node, catalog, and trailer, then
// opens a handle.
func (b *docBuilder) build(t *testing.T) *document.Handle {
	t.Helper()
	kids := raw.NewArray()
	for _, p := range b.pages {
		kids.Append(raw.Ref(p.Num, p.Gen))
	}
	pagesDict := raw.Dict()
	pagesDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	pagesDict.Set(raw.NameLiteral("Kids"), kids)
	pagesDict.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(len(b.pages))))
	pagesRef := b.add(pagesDict)

	for _, p := range b.pages {
		if page, ok := b.doc.Objects[p].(*raw.DictObj); ok {
			page.Set(raw.NameLiteral("Parent"), raw.Ref(pagesRef.Num, pagesRef.Gen))
		}
	}

	catalog := raw.Dict()
	catalog.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	catalog.Set(raw.NameLiteral("Pages"), raw.Ref(pagesRef.Num, pagesRef.Gen))
	catalogRef := b.add(catalog)

	trailer := raw.Dict()
	trailer.Set(raw.NameLiteral("Root"), raw.Ref(catalogRef.Num, catalogRef.Gen))
	b.doc.Trailer = trailer

	h, err := document.Open(b.doc)
	if err != nil {
		t.Fatalf("open document: %v", err)
	}
	return h
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("compress: %v", err)
	}
	return buf.Bytes()
}
