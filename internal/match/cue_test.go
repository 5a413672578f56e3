package match

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svintsoff78/krepko/internal/ir"
)

func compileCUE(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath("body"))
}

func TestFromCUE_Wildcards(t *testing.T) {
	p, err := FromCUE(compileCUE(t, `
body: {
	anything: _
	name:     string
	count:    int
	ratio:    number
	positive: >0
	flag:     bool
	list:     [...]
	obj:      {}
}
`))
	require.NoError(t, err)

	want := []struct {
		key  string
		kind Kind
		wild Wildcard
	}{
		{"anything", KindWildcard, WildcardAny},
		{"name", KindWildcard, WildcardString},
		{"count", KindWildcard, WildcardNumber},
		{"ratio", KindWildcard, WildcardNumber},
		{"positive", KindWildcard, WildcardNumber},
		{"flag", KindWildcard, WildcardBoolean},
		{"list", KindWildcard, WildcardArray},
		{"obj", KindNested, 0},
	}

	fields := p.Fields()
	require.Len(t, fields, len(want))
	for i, w := range want {
		assert.Equal(t, w.key, fields[i].Key)
		assert.Equal(t, w.kind, fields[i].Pattern.Kind(), w.key)
		if w.kind == KindWildcard {
			assert.Equal(t, w.wild, fields[i].Pattern.Wildcard(), w.key)
		}
	}
}

func TestFromCUE_Literals(t *testing.T) {
	p, err := FromCUE(compileCUE(t, `
body: {
	id:     1
	ratio:  0.5
	name:   "Ann"
	active: true
	gone:   null
	pair:   [1, string]
}
`))
	require.NoError(t, err)
	fields := p.Fields()
	require.Len(t, fields, 6)

	assert.Equal(t, ir.Number(1), fields[0].Pattern.Value())
	assert.Equal(t, ir.Number(0.5), fields[1].Pattern.Value())
	assert.Equal(t, ir.String("Ann"), fields[2].Pattern.Value())
	assert.Equal(t, ir.Bool(true), fields[3].Pattern.Value())
	assert.Equal(t, ir.Null{}, fields[4].Pattern.Value())
	assert.Equal(t, KindOrdered, fields[5].Pattern.Kind())
	assert.Equal(t, WildcardString, fields[5].Pattern.Items()[1].Wildcard())
}

func TestFromCUE_ArrayMatchers(t *testing.T) {
	p, err := FromCUE(compileCUE(t, `
body: {
	ids:   [...number]
	users: {#arrayOf: {id: int, email: string}}
	roles: {#contains: ["admin"]}
}
`))
	require.NoError(t, err)
	fields := p.Fields()
	require.Len(t, fields, 3)

	assert.Equal(t, KindArrayOf, fields[0].Pattern.Kind())
	assert.Equal(t, WildcardNumber, fields[0].Pattern.Item().Wildcard())

	assert.Equal(t, KindArrayOf, fields[1].Pattern.Kind())
	assert.Len(t, fields[1].Pattern.Item().Fields(), 2)

	assert.Equal(t, KindArrayContaining, fields[2].Pattern.Kind())
	assert.Equal(t, ir.String("admin"), fields[2].Pattern.Items()[0].Value())
}

func TestFromCUE_MatchesBody(t *testing.T) {
	p, err := FromCUE(compileCUE(t, `
body: {
	token: string
	user: {
		id:    int
		roles: {#contains: ["admin"]}
	}
}
`))
	require.NoError(t, err)

	body, err := ir.Parse([]byte(`{"token":"t","user":{"id":3,"roles":["admin"]}}`))
	require.NoError(t, err)
	assert.Nil(t, Match(body, p, Unlimited))

	body, err = ir.Parse([]byte(`{"token":1,"user":{"id":3,"roles":["admin"]}}`))
	require.NoError(t, err)
	m := Match(body, p, Unlimited)
	require.NotNil(t, m)
	assert.Equal(t, "token", m.Path)
}

func TestFromCUE_Errors(t *testing.T) {
	_, err := FromCUE(compileCUE(t, `body: {roles: {#contains: "admin"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#contains requires a list")

	_, err = FromCUE(compileCUE(t, `body: {data: bytes}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported constraint")
}

func TestFromCUE_RejectsDefaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"string default", `body: {role: *"admin" | string}`},
		{"number default", `body: {page: *1 | int}`},
		{"literal disjunction", `body: {state: *"on" | "off"}`},
		{"top level", `body: *{} | {id: number}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromCUE(compileCUE(t, tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "default values are not allowed in patterns")
		})
	}

	p, err := FromCUE(compileCUE(t, `body: {role: "admin" | "owner", page: int}`))
	require.NoError(t, err, "disjunctions without a default are accepted")
	assert.Equal(t, `{"role":string,"page":number}`, p.String())
}
