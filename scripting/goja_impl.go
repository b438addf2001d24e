package scripting

import (
	"context"
	"fmt"
	"sort"

	"github.com/dop251/goja"

	"github.com/wudi/pdffont/fonts"
	"github.com/wudi/pdffont/ir/raw"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	return &GojaEngine{vm: goja.New()}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

// RegisterDOM exposes the font operations on a global 'pdf' object:
//
//	pdf.listFonts(withData)        -> [{baseFont, subtype, reference, ...}]
//	pdf.usedFonts(first, last)     -> [[num, gen], ...]
//	pdf.removeFonts([[num, gen]])  -> count
//	pdf.mergeFonts(updates, replacements)
func (e *GojaEngine) RegisterDOM(dom FontDOM) error {
	pdfObj := e.vm.NewObject()

	err := pdfObj.Set("listFonts", func(call goja.FunctionCall) goja.Value {
		withData := false
		if len(call.Arguments) > 0 {
			withData = call.Arguments[0].ToBoolean()
		}
		records, err := dom.ListFonts(context.Background(), withData)
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		out := make([]interface{}, 0, len(records))
		for _, rec := range records {
			out = append(out, recordToJS(rec))
		}
		return e.vm.ToValue(out)
	})
	if err != nil {
		return err
	}

	err = pdfObj.Set("usedFonts", func(call goja.FunctionCall) goja.Value {
		first, last := 1, 0
		if len(call.Arguments) > 0 {
			first = int(call.Arguments[0].ToInteger())
		}
		if len(call.Arguments) > 1 {
			last = int(call.Arguments[1].ToInteger())
		}
		refs, err := dom.UsedFonts(context.Background(), first, last)
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })
		out := make([]interface{}, 0, len(refs))
		for _, ref := range refs {
			out = append(out, refToJS(ref))
		}
		return e.vm.ToValue(out)
	})
	if err != nil {
		return err
	}

	err = pdfObj.Set("removeFonts", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return e.vm.ToValue(0)
		}
		refs, err := refsFromJS(call.Arguments[0].Export())
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		return e.vm.ToValue(dom.RemoveFonts(refs))
	})
	if err != nil {
		return err
	}

	err = pdfObj.Set("mergeFonts", func(call goja.FunctionCall) goja.Value {
		var updates []fonts.WidthUpdate
		replacements := make(map[raw.ObjectRef]raw.ObjectRef)
		if len(call.Arguments) > 0 {
			var err error
			updates, err = updatesFromJS(call.Arguments[0].Export())
			if err != nil {
				panic(e.vm.NewGoError(err))
			}
		}
		if len(call.Arguments) > 1 {
			var err error
			replacements, err = replacementsFromJS(call.Arguments[1].Export())
			if err != nil {
				panic(e.vm.NewGoError(err))
			}
		}
		if err := dom.MergeFonts(updates, replacements); err != nil {
			panic(e.vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	return e.vm.Set("pdf", pdfObj)
}

func refToJS(ref raw.ObjectRef) []interface{} {
	return []interface{}{int64(ref.Num), int64(ref.Gen)}
}

func recordToJS(rec fonts.Record) map[string]interface{} {
	out := map[string]interface{}{
		"baseFont":  rec.BaseFont,
		"subtype":   rec.Subtype,
		"reference": refToJS(rec.Ref),
	}
	if rec.Encoding != "" {
		out["encoding"] = rec.Encoding
	}
	if rec.StreamRef != nil {
		out["streamRef"] = refToJS(*rec.StreamRef)
	}
	if rec.DescendantFont != nil {
		out["descendantFont"] = refToJS(*rec.DescendantFont)
	}
	if rec.Data != nil {
		out["data"] = rec.Data
	}
	if rec.W != nil {
		out["w"] = rec.W.Interface()
	}
	if rec.W2 != nil {
		out["w2"] = rec.W2.Interface()
	}
	return out
}

func refFromJS(v interface{}) (raw.ObjectRef, error) {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return raw.ObjectRef{}, fmt.Errorf("reference must be a [number, generation] pair, got %T", v)
	}
	num, ok1 := jsInt(pair[0])
	gen, ok2 := jsInt(pair[1])
	if !ok1 || !ok2 {
		return raw.ObjectRef{}, fmt.Errorf("reference pair must hold integers")
	}
	return raw.ObjectRef{Num: int(num), Gen: int(gen)}, nil
}

func refsFromJS(v interface{}) ([]raw.ObjectRef, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array of references, got %T", v)
	}
	out := make([]raw.ObjectRef, 0, len(items))
	for _, item := range items {
		ref, err := refFromJS(item)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func updatesFromJS(v interface{}) ([]fonts.WidthUpdate, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array of updates, got %T", v)
	}
	out := make([]fonts.WidthUpdate, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("update must be an object, got %T", item)
		}
		ref, err := refFromJS(entry["ref"])
		if err != nil {
			return nil, err
		}
		update := fonts.WidthUpdate{Ref: ref}
		if w, ok := entry["w"].([]interface{}); ok {
			if update.W, err = fonts.WidthsFromInterface(w); err != nil {
				return nil, err
			}
		}
		if w2, ok := entry["w2"].([]interface{}); ok {
			if update.W2, err = fonts.WidthsFromInterface(w2); err != nil {
				return nil, err
			}
		}
		switch data := entry["data"].(type) {
		case nil:
		case []byte:
			update.Program = data
		case string:
			update.Program = []byte(data)
		default:
			return nil, fmt.Errorf("update data must be bytes or a string, got %T", data)
		}
		out = append(out, update)
	}
	return out, nil
}

func replacementsFromJS(v interface{}) (map[raw.ObjectRef]raw.ObjectRef, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array of [old, new] reference pairs, got %T", v)
	}
	out := make(map[raw.ObjectRef]raw.ObjectRef, len(items))
	for _, item := range items {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("replacement must be an [old, new] pair")
		}
		oldRef, err := refFromJS(pair[0])
		if err != nil {
			return nil, err
		}
		newRef, err := refFromJS(pair[1])
		if err != nil {
			return nil, err
		}
		out[oldRef] = newRef
	}
	return out, nil
}

func jsInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
