package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface representing a JSON value.
// Only Null, Bool, Number, String, Array, and Object implement this.
// A nil Value represents an undefined (absent) value.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null value.
// Using an explicit type keeps null distinguishable from undefined (nil).
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Number represents a JSON number.
type Number float64

func (Number) value() {}

// String represents a string value.
type String string

func (String) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// Object represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Type names reported in diagnostics.
const (
	TypeUndefined = "undefined"
	TypeNull      = "null"
	TypeBool      = "boolean"
	TypeNumber    = "number"
	TypeString    = "string"
	TypeArray     = "array"
	TypeObject    = "object"
)

// TypeName returns the type category of v.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return TypeUndefined
	case Null:
		return TypeNull
	case Bool:
		return TypeBool
	case Number:
		return TypeNumber
	case String:
		return TypeString
	case Array:
		return TypeArray
	case Object:
		return TypeObject
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsScalar reports whether v is null, a boolean, a number or a string.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Null, Bool, Number, String:
		return true
	default:
		return false
	}
}

// Equal reports strict equality of two scalar values.
// Arrays and objects are never equal to anything, including themselves:
// structural comparison is the matcher's job, not equality's.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	default:
		return false
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 ordering, which differs outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Parse decodes JSON bytes into a Value.
// Numbers are decoded through json.Number so large integers keep their
// exact textual form until converted to float64.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return FromAny(raw)
}

// FromAny converts a decoded Go value (from encoding/json, yaml.v3, gjson or
// plain Go literals) into a Value. A nil input becomes Null. Other types are
// converted through encoding/json.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = item
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = item
		}
		return obj, nil
	case map[string]string:
		obj := make(Object, len(val))
		for k, elem := range val {
			obj[k] = String(elem)
		}
		return obj, nil
	default:
		// Structs, typed slices and maps go through their JSON encoding.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported type %T: %w", v, err)
		}
		return Parse(data)
	}
}

// ToAny converts a Value back into plain Go values suitable for
// encoding/json. Undefined becomes nil.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Number:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Lookup walks a sequence of object keys from v.
// Returns false if any segment is missing or not an object.
func Lookup(v Value, keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		obj, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// formatNumber renders a number the way JSON producers usually do:
// integral values without a fractional part, everything else in shortest form.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements json.Marshaler for Number.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("unsupported number: %v", f)
	}
	return []byte(formatNumber(f)), nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON implements json.Marshaler for Array.
func (arr Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}
