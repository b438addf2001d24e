package fonts

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdffont/ir/raw"
)

func TestWidthsRoundTrip(t *testing.T) {
	src := raw.NewArray(
		raw.NumberInt(1),
		raw.NewArray(raw.NumberInt(500), raw.NumberFloat(612.5), raw.NumberInt(250)),
		raw.NumberInt(17),
		raw.NumberInt(42),
		raw.NumberFloat(333.25),
	)

	w, err := WidthsFromRaw(src)
	if err != nil {
		t.Fatalf("WidthsFromRaw: %v", err)
	}

	back := w.Raw()
	if diff := cmp.Diff(widthShape(src), widthShape(back)); diff != "" {
		t.Errorf("round trip changed the array (-want +got):\n%s", diff)
	}

	// Integer and real leaves must keep their kind across the boundary form.
	iface := w.Interface()
	if _, ok := iface[0].(int64); !ok {
		t.Errorf("expected int64 leaf, got %T", iface[0])
	}
	nested, ok := iface[1].([]interface{})
	if !ok {
		t.Fatalf("expected nested []interface{}, got %T", iface[1])
	}
	if _, ok := nested[1].(float64); !ok {
		t.Errorf("expected float64 leaf, got %T", nested[1])
	}

	again, err := WidthsFromInterface(iface)
	if err != nil {
		t.Fatalf("WidthsFromInterface: %v", err)
	}
	if diff := cmp.Diff(widthShape(src), widthShape(again.Raw())); diff != "" {
		t.Errorf("interface round trip changed the array (-want +got):\n%s", diff)
	}
}

func TestWidthsFromRawRejectsNonNumbers(t *testing.T) {
	src := raw.NewArray(
		raw.NumberInt(1),
		raw.NameLiteral("NotAWidth"),
	)
	if _, err := WidthsFromRaw(src); !errors.Is(err, ErrMalformedWidthArray) {
		t.Fatalf("expected ErrMalformedWidthArray, got %v", err)
	}

	nested := raw.NewArray(raw.NewArray(raw.Str([]byte("x"))))
	if _, err := WidthsFromRaw(nested); !errors.Is(err, ErrMalformedWidthArray) {
		t.Fatalf("expected ErrMalformedWidthArray for nested entry, got %v", err)
	}
}

func TestWidthsFromInterfaceRejectsUnknownTypes(t *testing.T) {
	if _, err := WidthsFromInterface([]interface{}{int64(1), "oops"}); !errors.Is(err, ErrMalformedWidthArray) {
		t.Fatalf("expected ErrMalformedWidthArray, got %v", err)
	}
}

func TestWidthsFromInterfaceAcceptsNumericKinds(t *testing.T) {
	w, err := WidthsFromInterface([]interface{}{1, int32(2), int64(3), float32(4.5), 5.5})
	if err != nil {
		t.Fatalf("WidthsFromInterface: %v", err)
	}
	want := []interface{}{int64(1), int64(2), int64(3), float64(float32(4.5)), 5.5}
	if diff := cmp.Diff(want, w.Interface()); diff != "" {
		t.Errorf("unexpected normalization (-want +got):\n%s", diff)
	}
}

// widthShape flattens a raw array into comparable leaves so cmp can diff
// arrays built from different concrete paths.
func widthShape(arr raw.Array) []interface{} {
	out := make([]interface{}, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		elem, _ := arr.Get(i)
		switch v := elem.(type) {
		case raw.Number:
			if v.IsInteger() {
				out = append(out, v.Int())
			} else {
				out = append(out, v.Float())
			}
		case raw.Array:
			out = append(out, widthShape(v))
		default:
			out = append(out, elem)
		}
	}
	return out
}
