package document

import (
	"sort"

	"github.com/wudi/pdffont/filters"
	"github.com/wudi/pdffont/ir/raw"
)

func filtersFor(s raw.Stream) ([]string, []raw.Dictionary) {
	return filters.ExtractFilters(s.Dictionary())
}

func collectPages(doc *raw.Document) []*Page {
	h := &treeWalker{doc: doc, visited: make(map[raw.ObjectRef]bool)}
	if doc.Trailer != nil {
		if rootObj, ok := doc.Trailer.Get(raw.NameLiteral("Root")); ok {
			h.walk(rootObj, nil)
		}
	}
	if len(h.pages) > 0 {
		return h.pages
	}
	return scanPages(doc)
}

type treeWalker struct {
	doc     *raw.Document
	visited map[raw.ObjectRef]bool
	pages   []*Page
}

// walk descends Catalog -> Pages -> Page, carrying inherited Resources down
// the tree. Cycles through malformed Kids arrays terminate at the visited set.
func (w *treeWalker) walk(obj raw.Object, inherited raw.Object) {
	if ref, ok := obj.(raw.Reference); ok {
		if w.visited[ref.Ref()] {
			return
		}
		w.visited[ref.Ref()] = true
	}
	dict := derefDict(w.doc, obj)
	if dict == nil {
		return
	}
	resources := inherited
	if own, ok := dict.Get(raw.NameLiteral("Resources")); ok {
		resources = own
	}
	typ := nameValue(dict, "Type")
	switch typ {
	case "Catalog":
		if pagesObj, ok := dict.Get(raw.NameLiteral("Pages")); ok {
			w.walk(pagesObj, resources)
		}
		return
	case "Pages":
		if kids := derefArray(w.doc, dict, "Kids"); kids != nil {
			for _, kid := range kids.Items {
				w.walk(kid, resources)
			}
		}
		return
	case "Page":
		w.pages = append(w.pages, &Page{dict: dict, resources: resources})
		return
	}
	// Untyped dictionaries holding content are treated as pages.
	if _, ok := dict.Get(raw.NameLiteral("Contents")); ok {
		w.pages = append(w.pages, &Page{dict: dict, resources: resources})
	}
}

// scanPages finds page dictionaries without a trailer, in (Num, Gen) order.
func scanPages(doc *raw.Document) []*Page {
	var refs []raw.ObjectRef
	for ref, obj := range doc.Objects {
		if dict, ok := obj.(*raw.DictObj); ok && nameValue(dict, "Type") == "Page" {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	pages := make([]*Page, 0, len(refs))
	for _, ref := range refs {
		dict := doc.Objects[ref].(*raw.DictObj)
		var resources raw.Object
		if own, ok := dict.Get(raw.NameLiteral("Resources")); ok {
			resources = own
		}
		pages = append(pages, &Page{dict: dict, resources: resources})
	}
	return pages
}

func nameValue(dict *raw.DictObj, key string) string {
	val, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return ""
	}
	if n, ok := val.(raw.Name); ok {
		return n.Value()
	}
	return ""
}

func derefDict(doc *raw.Document, obj raw.Object) *raw.DictObj {
	if obj == nil {
		return nil
	}
	resolved, ok := doc.Resolve(obj)
	if !ok {
		return nil
	}
	if dict, ok := resolved.(*raw.DictObj); ok {
		return dict
	}
	if stream, ok := resolved.(raw.Stream); ok {
		if dict, ok := stream.Dictionary().(*raw.DictObj); ok {
			return dict
		}
	}
	return nil
}

func derefArray(doc *raw.Document, dict *raw.DictObj, key string) *raw.ArrayObj {
	val, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return nil
	}
	resolved, ok := doc.Resolve(val)
	if !ok {
		return nil
	}
	if arr, ok := resolved.(*raw.ArrayObj); ok {
		return arr
	}
	return nil
}
