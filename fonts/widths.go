package fonts

import (
	"fmt"

	"github.com/wudi/pdffont/ir/raw"
)

// Width arrays (the font dictionary's W and W2 entries) are nested numeric
// arrays: leaves are integers or reals, sub-arrays compress glyph ranges.
// The element kinds survive a full load -> modify -> save round trip: an
// integer leaf never comes back as a real and vice versa.

type WidthElem interface{ isWidthElem() }

type WidthInt int64

func (WidthInt) isWidthElem() {}

type WidthReal float64

func (WidthReal) isWidthElem() {}

type WidthArray []WidthElem

func (WidthArray) isWidthElem() {}

// WidthsFromRaw converts a raw array into a WidthArray, recursing into
// sub-arrays. Any element that is neither a number nor an array fails with
// ErrMalformedWidthArray.
func WidthsFromRaw(arr raw.Array) (WidthArray, error) {
	out := make(WidthArray, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		item, _ := arr.Get(i)
		switch v := item.(type) {
		case raw.Number:
			if v.IsInteger() {
				out = append(out, WidthInt(v.Int()))
			} else {
				out = append(out, WidthReal(v.Float()))
			}
		case raw.Array:
			sub, err := WidthsFromRaw(v)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
		default:
			return nil, fmt.Errorf("%w: element %d has type %s", ErrMalformedWidthArray, i, item.Type())
		}
	}
	return out, nil
}

// Raw converts the width array back into a raw array, preserving each leaf's
// numeric kind.
func (w WidthArray) Raw() *raw.ArrayObj {
	arr := &raw.ArrayObj{Items: make([]raw.Object, 0, len(w))}
	for _, elem := range w {
		switch v := elem.(type) {
		case WidthInt:
			arr.Append(raw.NumberInt(int64(v)))
		case WidthReal:
			arr.Append(raw.NumberFloat(float64(v)))
		case WidthArray:
			arr.Append(v.Raw())
		}
	}
	return arr
}

// Interface renders the width array as nested []interface{} with int64 and
// float64 leaves, the shape it crosses the host boundary in.
func (w WidthArray) Interface() []interface{} {
	out := make([]interface{}, 0, len(w))
	for _, elem := range w {
		switch v := elem.(type) {
		case WidthInt:
			out = append(out, int64(v))
		case WidthReal:
			out = append(out, float64(v))
		case WidthArray:
			out = append(out, v.Interface())
		}
	}
	return out
}

// WidthsFromInterface is the inverse of Interface, accepting the numeric
// types host layers produce.
func WidthsFromInterface(src []interface{}) (WidthArray, error) {
	out := make(WidthArray, 0, len(src))
	for i, item := range src {
		switch v := item.(type) {
		case int:
			out = append(out, WidthInt(int64(v)))
		case int32:
			out = append(out, WidthInt(int64(v)))
		case int64:
			out = append(out, WidthInt(v))
		case float32:
			out = append(out, WidthReal(float64(v)))
		case float64:
			out = append(out, WidthReal(v))
		case []interface{}:
			sub, err := WidthsFromInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
		default:
			return nil, fmt.Errorf("%w: element %d has type %T", ErrMalformedWidthArray, i, item)
		}
	}
	return out, nil
}
