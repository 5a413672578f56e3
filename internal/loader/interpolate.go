package loader

import (
	"regexp"
	"strings"

	"github.com/svintsoff78/krepko/internal/ir"
)

// Vars resolves variable names. *flow.Context satisfies it.
type Vars interface {
	Var(key string) (ir.Value, bool)
}

// varRef matches ${name} and ${name.key.key}.
var varRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_-]+)*)\}`)

// resolve looks up a reference such as "user" or "user.address.city". Dotted
// segments descend into object variables.
func resolve(vars Vars, ref string) (ir.Value, error) {
	parts := strings.Split(ref, ".")
	v, ok := vars.Var(parts[0])
	if !ok {
		return nil, &UndefinedVariableError{Name: ref}
	}
	if len(parts) > 1 {
		v, ok = ir.Lookup(v, parts[1:]...)
		if !ok {
			return nil, &UndefinedVariableError{Name: ref}
		}
	}
	return v, nil
}

// render formats a variable for substitution into a larger string.
func render(v ir.Value) string {
	if s, ok := v.(ir.String); ok {
		return string(s)
	}
	return ir.Format(v)
}

// InterpolateString replaces every ${name} in s. Strings are inserted as-is,
// other values as compact JSON.
func InterpolateString(s string, vars Vars) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var firstErr error
	out := varRef.ReplaceAllStringFunc(s, func(m string) string {
		if firstErr != nil {
			return m
		}
		v, err := resolve(vars, m[2:len(m)-1])
		if err != nil {
			firstErr = err
			return m
		}
		return render(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// InterpolateValue interpolates every string leaf of v. A string consisting
// of exactly one reference is replaced by the variable's value, keeping its
// type.
func InterpolateValue(v ir.Value, vars Vars) (ir.Value, error) {
	switch val := v.(type) {
	case ir.String:
		s := string(val)
		if loc := varRef.FindStringSubmatchIndex(s); loc != nil && loc[0] == 0 && loc[1] == len(s) {
			return resolve(vars, s[loc[2]:loc[3]])
		}
		out, err := InterpolateString(s, vars)
		if err != nil {
			return nil, err
		}
		return ir.String(out), nil
	case ir.Array:
		out := make(ir.Array, len(val))
		for i, elem := range val {
			item, err := InterpolateValue(elem, vars)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case ir.Object:
		out := make(ir.Object, len(val))
		for _, k := range val.SortedKeys() {
			item, err := InterpolateValue(val[k], vars)
			if err != nil {
				return nil, err
			}
			out[k] = item
		}
		return out, nil
	default:
		return v, nil
	}
}
