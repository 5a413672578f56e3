package match

import (
	"fmt"
	"math"
	"strconv"

	"github.com/svintsoff78/krepko/internal/ir"
)

// Unlimited disables the depth cutoff.
const Unlimited = math.MaxInt

// RootPath is reported when a mismatch occurs at the top-level value.
const RootPath = "root"

// Mismatch describes the first violation found while matching.
type Mismatch struct {
	// Path is the dotted/bracket key path from the root ("root" if empty).
	Path string
	// Expected is the rendered expectation at Path.
	Expected string
	// Received is the actual value at Path; nil when the key was missing.
	Received ir.Value
	// Message is the human-readable diagnostic.
	Message string
}

func (m *Mismatch) String() string {
	return m.Message
}

// Match checks actual against p, starting at the root with the given depth
// limit. Returns nil when actual satisfies p.
func Match(actual ir.Value, p Pattern, maxDepth int) *Mismatch {
	return MatchAt(actual, p, "", 0, maxDepth)
}

// MatchAt checks actual against p as if it were found at path and depth.
//
// When depth exceeds maxDepth the subtree is treated as matching. Traversal
// follows the pattern's declaration order and stops at the first violation.
func MatchAt(actual ir.Value, p Pattern, path string, depth, maxDepth int) *Mismatch {
	if depth > maxDepth {
		return nil
	}

	switch p.kind {
	case KindWildcard:
		if p.wildcard.accepts(actual) {
			return nil
		}
		return mismatchAt(path, p.wildcard.String(), actual,
			"expected %s, received %s", p.wildcard, ir.Format(actual))

	case KindArrayOf:
		arr, ok := actual.(ir.Array)
		if !ok {
			return notAnArray(path, actual)
		}
		item := p.Item()
		for i, elem := range arr {
			if m := MatchAt(elem, item, indexPath(path, i), depth+1, maxDepth); m != nil {
				return m
			}
		}
		return nil

	case KindArrayContaining:
		arr, ok := actual.(ir.Array)
		if !ok {
			return notAnArray(path, actual)
		}
		for i, item := range p.items {
			if !containsMatch(arr, item, depth+1, maxDepth) {
				return mismatchAt(path, item.String(), actual,
					"array does not contain expected item at index %d", i)
			}
		}
		return nil

	case KindOrdered:
		arr, ok := actual.(ir.Array)
		if !ok {
			return notAnArray(path, actual)
		}
		if len(arr) < len(p.items) {
			return mismatchAt(path, strconv.Itoa(len(p.items)), ir.Number(len(arr)),
				"expected array with at least %d elements, received %d", len(p.items), len(arr))
		}
		for i, item := range p.items {
			if m := MatchAt(arr[i], item, indexPath(path, i), depth+1, maxDepth); m != nil {
				return m
			}
		}
		return nil

	case KindNested:
		obj, ok := actual.(ir.Object)
		if !ok {
			return mismatchAt(path, ir.TypeObject, actual,
				"expected object, received %s", ir.TypeName(actual))
		}
		for _, f := range p.fields {
			at := keyPath(path, f.Key)
			value, exists := obj[f.Key]
			if !exists {
				return &Mismatch{
					Path:     at,
					Expected: f.Pattern.String(),
					Message:  fmt.Sprintf("Body mismatch at %q: key not found in actual object", at),
				}
			}
			if m := MatchAt(value, f.Pattern, at, depth+1, maxDepth); m != nil {
				return m
			}
		}
		return nil

	default:
		if ir.Equal(actual, p.value) {
			return nil
		}
		return mismatchAt(path, ir.Format(p.value), actual,
			"expected %s, received %s", ir.Format(p.value), ir.Format(actual))
	}
}

// containsMatch reports whether any element of arr matches item. Inner
// matches run with an empty path; only the verdict is used.
func containsMatch(arr ir.Array, item Pattern, depth, maxDepth int) bool {
	for _, elem := range arr {
		if MatchAt(elem, item, "", depth, maxDepth) == nil {
			return true
		}
	}
	return false
}

func notAnArray(path string, actual ir.Value) *Mismatch {
	return mismatchAt(path, ir.TypeArray, actual,
		"expected array, received %s", ir.TypeName(actual))
}

func mismatchAt(path, expected string, received ir.Value, format string, args ...any) *Mismatch {
	p := displayPath(path)
	return &Mismatch{
		Path:     p,
		Expected: expected,
		Received: received,
		Message:  fmt.Sprintf("Body mismatch at %q: ", p) + fmt.Sprintf(format, args...),
	}
}

func displayPath(path string) string {
	if path == "" {
		return RootPath
	}
	return path
}

func keyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
