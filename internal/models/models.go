package models

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which case of the JSON tagged union a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ObjectMap holds the members of a JSON object in insertion order.
type ObjectMap = orderedmap.OrderedMap[string, Value]

// Member is a single key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value. Exactly one of the payload fields is meaningful,
// selected by Kind. The zero Value is JSON null.
type Value struct {
	Kind   Kind
	Bool   bool
	Number json.Number // literal text, preserved for re-serialization
	Str    string
	Items  []Value
	Fields *ObjectMap
}

// NullValue returns JSON null.
func NullValue() Value { return Value{Kind: Null} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: Bool, Bool: b} }

// NumberValue wraps a number literal.
func NumberValue(n json.Number) Value { return Value{Kind: Number, Number: n} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{Kind: Number, Number: json.Number(fmt.Sprintf("%d", i))} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: String, Str: s} }

// ArrayValue builds an array from the given items.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: Array, Items: items}
}

// NewObjectMap allocates an empty ordered member map.
func NewObjectMap(capacity int) *ObjectMap {
	return orderedmap.New[string, Value](capacity)
}

// ObjectValue builds an object whose members appear in the given order.
// A repeated key keeps its first position and takes the last value.
func ObjectValue(members ...Member) Value {
	m := NewObjectMap(len(members))
	for _, member := range members {
		m.Set(member.Key, member.Value)
	}
	return Value{Kind: Object, Fields: m}
}

// EmptyLike returns the shortest value of the same kind as v: an empty
// container, "", 0, false or null. Its encoding is never longer than v's.
func EmptyLike(v Value) Value {
	switch v.Kind {
	case Array:
		return ArrayValue()
	case Object:
		return ObjectValue()
	case String:
		return StringValue("")
	case Number:
		return IntValue(0)
	case Bool:
		return BoolValue(false)
	default:
		return NullValue()
	}
}

// IsContainer reports whether v is an array or an object.
func (v Value) IsContainer() bool {
	return v.Kind == Array || v.Kind == Object
}

// Len returns the number of children of a container, or 0 for scalars.
func (v Value) Len() int {
	switch v.Kind {
	case Array:
		return len(v.Items)
	case Object:
		if v.Fields == nil {
			return 0
		}
		return v.Fields.Len()
	default:
		return 0
	}
}

// Get returns the member stored under key when v is an object.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object || v.Fields == nil {
		return Value{}, false
	}
	return v.Fields.Get(key)
}

// Members returns the object members in insertion order.
func (v Value) Members() []Member {
	if v.Kind != Object || v.Fields == nil {
		return nil
	}
	members := make([]Member, 0, v.Fields.Len())
	for pair := v.Fields.Oldest(); pair != nil; pair = pair.Next() {
		members = append(members, Member{Key: pair.Key, Value: pair.Value})
	}
	return members
}

// Keys returns the object keys in insertion order.
func (v Value) Keys() []string {
	if v.Kind != Object || v.Fields == nil {
		return nil
	}
	keys := make([]string, 0, v.Fields.Len())
	for pair := v.Fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns a deep copy of v that shares no containers with it.
func (v Value) Clone() Value {
	switch v.Kind {
	case Array:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = item.Clone()
		}
		return Value{Kind: Array, Items: items}
	case Object:
		m := NewObjectMap(v.Len())
		for _, member := range v.Members() {
			m.Set(member.Key, member.Value.Clone())
		}
		return Value{Kind: Object, Fields: m}
	case Null, Bool, Number, String:
		return v
	default:
		return v
	}
}

// Equal reports structural equality: same kinds, same scalars, same array
// order and same object members in the same order.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Null:
		return true
	case Bool:
		return v.Bool == other.Bool
	case Number:
		return v.Number == other.Number
	case String:
		return v.Str == other.Str
	case Array:
		if len(v.Items) != len(other.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case Object:
		if v.Len() != other.Len() {
			return false
		}
		a, b := v.Members(), other.Members()
		for i := range a {
			if a[i].Key != b[i].Key || !a[i].Value.Equal(b[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Interface converts v into the plain Go representation used by
// encoding/json and gojq: map[string]any, []any, float64/int, string, bool, nil.
// Object key order is not retained.
func (v Value) Interface() any {
	switch v.Kind {
	case Null:
		return nil
	case Bool:
		return v.Bool
	case Number:
		if i, err := v.Number.Int64(); err == nil && int64(int(i)) == i {
			return int(i)
		}
		f, err := v.Number.Float64()
		if err != nil {
			return string(v.Number)
		}
		return f
	case String:
		return v.Str
	case Array:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, v.Len())
		for _, member := range v.Members() {
			out[member.Key] = member.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// Document holds a parsed JSON document.
type Document struct {
	Root        Value
	RootIsArray bool // True if the root of the JSON is an array vs an object
}
