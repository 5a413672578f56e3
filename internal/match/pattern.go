package match

import (
	"fmt"
	"strings"

	"github.com/svintsoff78/krepko/internal/ir"
)

// Kind discriminates the Pattern variants.
type Kind uint8

const (
	// KindExact requires strict equality with a scalar value.
	KindExact Kind = iota
	// KindWildcard checks only the type category of the actual value.
	KindWildcard
	// KindNested is a partial object: only listed keys are checked.
	KindNested
	// KindOrdered is a positional array prefix.
	KindOrdered
	// KindArrayOf requires every element to match one item pattern.
	KindArrayOf
	// KindArrayContaining requires each item pattern to be matched by some element.
	KindArrayContaining
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindWildcard:
		return "wildcard"
	case KindNested:
		return "nested"
	case KindOrdered:
		return "ordered"
	case KindArrayOf:
		return "arrayOf"
	case KindArrayContaining:
		return "arrayContaining"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Wildcard is the type predicate of a KindWildcard pattern.
type Wildcard uint8

const (
	WildcardAny Wildcard = iota + 1
	WildcardString
	WildcardNumber
	WildcardBoolean
	WildcardArray
	WildcardObject
)

var wildcardNames = map[Wildcard]string{
	WildcardAny:     "any",
	WildcardString:  "string",
	WildcardNumber:  "number",
	WildcardBoolean: "boolean",
	WildcardArray:   "array",
	WildcardObject:  "object",
}

func (w Wildcard) String() string {
	if name, ok := wildcardNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Wildcard(%d)", uint8(w))
}

// ParseWildcard returns the wildcard with the given name.
func ParseWildcard(name string) (Wildcard, bool) {
	for w, n := range wildcardNames {
		if n == name {
			return w, true
		}
	}
	return 0, false
}

// accepts reports whether v satisfies the wildcard's type predicate.
func (w Wildcard) accepts(v ir.Value) bool {
	switch w {
	case WildcardAny:
		return v != nil
	case WildcardString:
		_, ok := v.(ir.String)
		return ok
	case WildcardNumber:
		_, ok := v.(ir.Number)
		return ok
	case WildcardBoolean:
		_, ok := v.(ir.Bool)
		return ok
	case WildcardArray:
		_, ok := v.(ir.Array)
		return ok
	case WildcardObject:
		_, ok := v.(ir.Object)
		return ok
	default:
		return false
	}
}

// Pattern is the expected shape passed to a body assertion.
//
// The zero Pattern is an exact match against undefined, which never matches.
// Build patterns with the constructors below.
type Pattern struct {
	kind     Kind
	wildcard Wildcard
	value    ir.Value
	fields   []Field
	items    []Pattern
}

// Field is one key of a nested object pattern.
type Field struct {
	Key     string
	Pattern Pattern
}

// F is shorthand for a Field.
func F(key string, p Pattern) Field {
	return Field{Key: key, Pattern: p}
}

func wildcard(w Wildcard) Pattern {
	return Pattern{kind: KindWildcard, wildcard: w}
}

// Any matches any defined value, including null.
func Any() Pattern { return wildcard(WildcardAny) }

// AnyString matches any string.
func AnyString() Pattern { return wildcard(WildcardString) }

// AnyNumber matches any number.
func AnyNumber() Pattern { return wildcard(WildcardNumber) }

// AnyBoolean matches true or false.
func AnyBoolean() Pattern { return wildcard(WildcardBoolean) }

// AnyArray matches any array.
func AnyArray() Pattern { return wildcard(WildcardArray) }

// AnyObject matches any non-null, non-array object.
func AnyObject() Pattern { return wildcard(WildcardObject) }

// Wild returns the wildcard pattern for w.
func Wild(w Wildcard) Pattern { return wildcard(w) }

// Object builds a partial object pattern. Keys are checked in the given order.
func Object(fields ...Field) Pattern {
	return Pattern{kind: KindNested, fields: fields}
}

// Items builds a positional array pattern: the actual array must have at
// least len(items) elements and each prefix element must match.
func Items(items ...Pattern) Pattern {
	if items == nil {
		items = []Pattern{}
	}
	return Pattern{kind: KindOrdered, items: items}
}

// ArrayOf requires every element of the actual array to match item.
func ArrayOf(item Pattern) Pattern {
	return Pattern{kind: KindArrayOf, items: []Pattern{item}}
}

// ArrayContaining requires each of items to be matched by at least one
// element of the actual array. One element may satisfy several items.
func ArrayContaining(items ...Pattern) Pattern {
	if items == nil {
		items = []Pattern{}
	}
	return Pattern{kind: KindArrayContaining, items: items}
}

// Exact converts a literal value into a pattern. Scalars require strict
// equality; objects become partial object patterns (keys in RFC 8785 order)
// and arrays become positional patterns.
func Exact(v ir.Value) Pattern {
	switch val := v.(type) {
	case ir.Object:
		fields := make([]Field, 0, len(val))
		for _, k := range val.SortedKeys() {
			fields = append(fields, F(k, Exact(val[k])))
		}
		return Object(fields...)
	case ir.Array:
		items := make([]Pattern, len(val))
		for i, elem := range val {
			items[i] = Exact(elem)
		}
		return Items(items...)
	default:
		return Pattern{kind: KindExact, value: v}
	}
}

// Kind returns the pattern variant.
func (p Pattern) Kind() Kind { return p.kind }

// Wildcard returns the predicate of a KindWildcard pattern.
func (p Pattern) Wildcard() Wildcard { return p.wildcard }

// Value returns the expected scalar of a KindExact pattern.
func (p Pattern) Value() ir.Value { return p.value }

// Fields returns the keys of a KindNested pattern in declaration order.
func (p Pattern) Fields() []Field { return p.fields }

// Items returns the element patterns of a KindOrdered or
// KindArrayContaining pattern.
func (p Pattern) Items() []Pattern { return p.items }

// Item returns the element pattern of a KindArrayOf pattern.
func (p Pattern) Item() Pattern {
	if p.kind != KindArrayOf || len(p.items) == 0 {
		return Pattern{}
	}
	return p.items[0]
}

// MapExact rebuilds the pattern with every exact leaf passed through fn.
// A leaf that fn turns into an object or array becomes the matching literal
// pattern, as with Exact. The receiver is not modified.
func (p Pattern) MapExact(fn func(ir.Value) (ir.Value, error)) (Pattern, error) {
	switch p.kind {
	case KindExact:
		v, err := fn(p.value)
		if err != nil {
			return Pattern{}, err
		}
		return Exact(v), nil
	case KindNested:
		fields := make([]Field, len(p.fields))
		for i, f := range p.fields {
			mapped, err := f.Pattern.MapExact(fn)
			if err != nil {
				return Pattern{}, err
			}
			fields[i] = F(f.Key, mapped)
		}
		return Pattern{kind: p.kind, fields: fields}, nil
	case KindOrdered, KindArrayOf, KindArrayContaining:
		items := make([]Pattern, len(p.items))
		for i, item := range p.items {
			mapped, err := item.MapExact(fn)
			if err != nil {
				return Pattern{}, err
			}
			items[i] = mapped
		}
		return Pattern{kind: p.kind, items: items}, nil
	default:
		return p, nil
	}
}

// String renders the pattern for diagnostics.
func (p Pattern) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p Pattern) write(b *strings.Builder) {
	switch p.kind {
	case KindExact:
		b.WriteString(ir.Format(p.value))
	case KindWildcard:
		b.WriteString(p.wildcard.String())
	case KindNested:
		b.WriteByte('{')
		for i, f := range p.fields {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%q:", f.Key)
			f.Pattern.write(b)
		}
		b.WriteByte('}')
	case KindOrdered:
		writeList(b, p.items)
	case KindArrayOf:
		b.WriteString("arrayOf(")
		p.Item().write(b)
		b.WriteByte(')')
	case KindArrayContaining:
		b.WriteString("arrayContaining(")
		writeList(b, p.items)
		b.WriteByte(')')
	}
}

func writeList(b *strings.Builder, items []Pattern) {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		item.write(b)
	}
	b.WriteByte(']')
}
