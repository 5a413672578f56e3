package match

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/svintsoff78/krepko/internal/ir"
)

// CUE definitions that turn a struct into an array matcher.
const (
	DefArrayOf  = "#arrayOf"
	DefContains = "#contains"
)

func cueError(v cue.Value, format string, args ...any) error {
	pos := v.Pos()
	return &DecodeError{Line: pos.Line(), Column: pos.Column(), Message: fmt.Sprintf(format, args...)}
}

// FromCUE decodes a pattern from a CUE value.
//
// Concrete values are literals. Types become wildcards: _ is Any, string,
// number (or int/float) and bool are their wildcards. A list with only an
// open tail ([...T]) is ArrayOf(T), or the Array wildcard when T is _.
// A struct carrying #arrayOf: T or #contains: [...] becomes the matching
// array matcher. Constraints narrower than a type (>0, =~"x") are checked
// only for their type. Marked defaults (*"x" | string) are rejected: a
// pattern is either the literal or the type.
func FromCUE(v cue.Value) (Pattern, error) {
	if err := v.Err(); err != nil {
		return Pattern{}, cueError(v, "invalid pattern: %v", err)
	}
	if hasDefault(v) {
		return Pattern{}, cueError(v, "default values are not allowed in patterns: write the literal or the type")
	}

	if !v.IsConcrete() {
		return wildcardFromCUE(v)
	}

	switch v.Kind() {
	case cue.ListKind:
		return listFromCUE(v)
	case cue.StructKind:
		return structFromCUE(v)
	default:
		val, err := ScalarFromCUE(v)
		if err != nil {
			return Pattern{}, err
		}
		return Exact(val), nil
	}
}

// hasDefault reports whether v is a disjunction with a marked default. Lists
// are skipped: CUE reports the closed form of every list as its default.
func hasDefault(v cue.Value) bool {
	if v.IncompleteKind()&cue.ListKind != 0 {
		return false
	}
	_, ok := v.Default()
	return ok
}

func wildcardFromCUE(v cue.Value) (Pattern, error) {
	kind := v.IncompleteKind()
	switch {
	case kind == cue.TopKind:
		return Any(), nil
	case kind == cue.StringKind:
		return AnyString(), nil
	case kind != 0 && kind&^cue.NumberKind == 0:
		return AnyNumber(), nil
	case kind == cue.BoolKind:
		return AnyBoolean(), nil
	case kind == cue.ListKind:
		return AnyArray(), nil
	case kind == cue.StructKind:
		return AnyObject(), nil
	default:
		return Pattern{}, cueError(v, "unsupported constraint of kind %s", kind)
	}
}

func listFromCUE(v cue.Value) (Pattern, error) {
	list, err := v.List()
	if err != nil {
		return Pattern{}, cueError(v, "%v", err)
	}
	var items []Pattern
	for list.Next() {
		p, err := FromCUE(list.Value())
		if err != nil {
			return Pattern{}, err
		}
		items = append(items, p)
	}

	if len(items) == 0 && v.Allows(cue.AnyIndex) {
		elem := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if !elem.Exists() || elem.IncompleteKind() == cue.TopKind {
			return AnyArray(), nil
		}
		item, err := FromCUE(elem)
		if err != nil {
			return Pattern{}, err
		}
		return ArrayOf(item), nil
	}
	return Items(items...), nil
}

func structFromCUE(v cue.Value) (Pattern, error) {
	if def := v.LookupPath(cue.ParsePath(DefArrayOf)); def.Exists() {
		item, err := FromCUE(def)
		if err != nil {
			return Pattern{}, err
		}
		return ArrayOf(item), nil
	}

	if def := v.LookupPath(cue.ParsePath(DefContains)); def.Exists() {
		if def.IncompleteKind() != cue.ListKind {
			return Pattern{}, cueError(def, "%s requires a list of patterns", DefContains)
		}
		list, err := def.List()
		if err != nil {
			return Pattern{}, cueError(def, "%v", err)
		}
		var items []Pattern
		for list.Next() {
			p, err := FromCUE(list.Value())
			if err != nil {
				return Pattern{}, err
			}
			items = append(items, p)
		}
		return ArrayContaining(items...), nil
	}

	iter, err := v.Fields()
	if err != nil {
		return Pattern{}, cueError(v, "%v", err)
	}
	var fields []Field
	for iter.Next() {
		p, err := FromCUE(iter.Value())
		if err != nil {
			return Pattern{}, err
		}
		fields = append(fields, F(iter.Selector().Unquoted(), p))
	}
	return Object(fields...), nil
}

// ScalarFromCUE converts a concrete CUE scalar into a value.
func ScalarFromCUE(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(v, "%v", err)
		}
		return ir.Bool(b), nil
	case cue.IntKind, cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, cueError(v, "%v", err)
		}
		return ir.Number(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(v, "%v", err)
		}
		return ir.String(s), nil
	default:
		return nil, cueError(v, "unsupported value of kind %s", v.Kind())
	}
}
