package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Number(42), "42"},
		{"negative int", Number(-100), "-100"},
		{"zero", Number(0), "0"},
		{"fraction", Number(0.25), "0.25"},
		{"large", Number(1e21), "1e+21"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of numbers", Array{Number(1), Number(2), Number(3)}, "[1,2,3]"},
		{"simple object", Object{"a": Number(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{
			"b": Number(1),
			"a": Number(2),
		},
		"a": Number(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9
	result, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalErrors(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(Number(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalCanonical(Array{Number(math.Inf(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "undefined", Format(nil))
	assert.Equal(t, `{"id":1}`, Format(Object{"id": Number(1)}))
	assert.Equal(t, `"x"`, Format(String("x")))
}

func TestIndent(t *testing.T) {
	got := Indent(Object{"b": Array{Number(1)}, "a": Null{}})
	assert.Equal(t, "{\n  \"a\": null,\n  \"b\": [\n    1\n  ]\n}", got)
	assert.Equal(t, "undefined", Indent(nil))
}
