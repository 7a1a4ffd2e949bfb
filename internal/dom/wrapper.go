// Package dom describes the JSON shape of captured DOM trees and produces
// it from static HTML.
//
// Each node is an object with nodeName, nodeType and children. Property
// values that have no JSON form are replaced by wrapper objects tagged with
// a _type field; consumers treat wrappers as opaque leaves.
package dom

import (
	"math"
	"strings"

	"github.com/mcncl/domtools/internal/models"
)

// Field names of the capture format.
const (
	FieldNodeName   = "nodeName"
	FieldNodeType   = "nodeType"
	FieldNodeValue  = "nodeValue"
	FieldChildren   = "children"
	FieldAttributes = "attributes"
	FieldShadowRoot = "shadowRoot"
	FieldError      = "_error"
	TypeField       = "_type"
)

// Wrapper types.
const (
	TypeFunction    = "Function"
	TypeBlob        = "Blob"
	TypeCanvas      = "Canvas"
	TypeImage       = "Image"
	TypeImageData   = "ImageData"
	TypeArrayBuffer = "ArrayBuffer"
	TypeTruncated   = "Truncated"
)

var binaryTypes = map[string]struct{}{
	TypeBlob:        {},
	TypeCanvas:      {},
	TypeImage:       {},
	TypeImageData:   {},
	TypeArrayBuffer: {},
}

// WrapperType returns the _type tag of v when v is a wrapper object.
func WrapperType(v models.Value) (string, bool) {
	tag, ok := v.Get(TypeField)
	if !ok || tag.Kind != models.String {
		return "", false
	}
	return tag.Str, true
}

// IsWrapper reports whether v is a _type-tagged wrapper.
func IsWrapper(v models.Value) bool {
	_, ok := WrapperType(v)
	return ok
}

// IsBinaryType reports whether a wrapper type carries binary payload.
func IsBinaryType(t string) bool {
	_, ok := binaryTypes[t]
	return ok
}

// PayloadSize estimates the payload carried by a binary wrapper in bytes:
// its numeric size field when present, otherwise the length of its data field.
// A size that is fractional or beyond the range of int reports math.MaxInt.
func PayloadSize(v models.Value) int {
	if size, ok := v.Get("size"); ok && size.Kind == models.Number {
		if n, err := size.Number.Int64(); err == nil && n >= 0 {
			return int(min(n, math.MaxInt))
		}
		f, err := size.Number.Float64()
		switch {
		case err != nil:
			// Out of float64 range.
			return math.MaxInt
		case f < 0:
		case f != math.Trunc(f) || f >= math.MaxInt:
			return math.MaxInt
		default:
			return int(f)
		}
	}
	if data, ok := v.Get("data"); ok && data.Kind == models.String {
		return len(data.Str)
	}
	return 0
}

// IsDataURL reports whether s is a data: URL.
func IsDataURL(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// IsByteArray reports whether v is a non-empty array of integers in 0..255.
func IsByteArray(v models.Value) bool {
	if v.Kind != models.Array || len(v.Items) == 0 {
		return false
	}
	for _, item := range v.Items {
		if item.Kind != models.Number {
			return false
		}
		n, err := item.Number.Int64()
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// FunctionWrapper wraps function source text.
func FunctionWrapper(source string) models.Value {
	return models.ObjectValue(
		models.Member{Key: TypeField, Value: models.StringValue(TypeFunction)},
		models.Member{Key: "source", Value: models.StringValue(source)},
	)
}

// BlobWrapper wraps a data URL.
func BlobWrapper(dataURL string) models.Value {
	return models.ObjectValue(
		models.Member{Key: TypeField, Value: models.StringValue(TypeBlob)},
		models.Member{Key: "data", Value: models.StringValue(dataURL)},
		models.Member{Key: "size", Value: models.IntValue(int64(len(dataURL)))},
	)
}

// Marker returns a wrapper that carries only its type, such as Canvas or Truncated.
func Marker(t string) models.Value {
	return models.ObjectValue(models.Member{Key: TypeField, Value: models.StringValue(t)})
}
