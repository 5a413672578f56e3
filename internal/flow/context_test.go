package flow

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/testutil"
)

func TestContext_URLNormalization(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.JSON(http.MethodGet, "/users", http.StatusOK, []int{})

	tests := []struct {
		name    string
		baseURL string
		path    string
	}{
		{"plain", srv.URL, "/users"},
		{"trailing slash on base", srv.URL + "/", "/users"},
		{"missing leading slash", srv.URL, "users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(tt.baseURL)
			res, err := c.Get(context.Background(), tt.path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.Status)

			last, _ := srv.LastRequest()
			assert.Equal(t, "/users", last.Path)
		})
	}
}

func TestContext_DefaultHeadersAndBearer(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.JSON(http.MethodGet, "/me", http.StatusOK, map[string]any{})

	c := NewContext(srv.URL)
	_, err := c.Get(context.Background(), "/me")
	require.NoError(t, err)

	last, _ := srv.LastRequest()
	assert.Equal(t, "application/json", last.Header.Get("Content-Type"))
	assert.Empty(t, last.Header.Get("Authorization"))

	c.Bearer("secret")
	_, err = c.Get(context.Background(), "/me",
		WithHeader("Content-Type", "text/plain"),
		WithHeader("Authorization", "Basic xyz"),
	)
	require.NoError(t, err)

	last, _ = srv.LastRequest()
	assert.Equal(t, "text/plain", last.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", last.Header.Get("Authorization"))

	c.ClearAuth()
	_, err = c.Get(context.Background(), "/me", WithHeaders(map[string]string{"X-Trace": "1"}))
	require.NoError(t, err)

	last, _ = srv.LastRequest()
	assert.Empty(t, last.Header.Get("Authorization"))
	assert.Equal(t, "1", last.Header.Get("X-Trace"))
}

func TestContext_BodyEncoding(t *testing.T) {
	srv := testutil.NewServer(t)
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		srv.JSON(m, "/items", http.StatusOK, map[string]any{"ok": true})
	}
	c := NewContext(srv.URL)
	ctx := context.Background()

	_, err := c.Post(ctx, "/items", map[string]any{"name": "<x>", "qty": 2})
	require.NoError(t, err)
	last, _ := srv.LastRequest()
	assert.Equal(t, `{"name":"<x>","qty":2}`, string(last.Body))

	_, err = c.Put(ctx, "/items", ir.Array{ir.Number(1)})
	require.NoError(t, err)
	last, _ = srv.LastRequest()
	assert.Equal(t, `[1]`, string(last.Body))

	_, err = c.Patch(ctx, "/items", nil)
	require.NoError(t, err)
	last, _ = srv.LastRequest()
	assert.Empty(t, last.Body)

	_, err = c.Request(ctx, http.MethodGet, "/items", WithBody(map[string]any{"ignored": true}))
	require.NoError(t, err)
	last, _ = srv.LastRequest()
	assert.Empty(t, last.Body)

	_, err = c.Delete(ctx, "/items", WithBody(ir.Null{}))
	require.NoError(t, err)
	last, _ = srv.LastRequest()
	assert.Equal(t, `null`, string(last.Body))
}

func TestContext_BodyEncodingError(t *testing.T) {
	c := NewContext("http://example.test")
	_, err := c.Post(context.Background(), "/x", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode request body")
}

func TestContext_ResponseParsing(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.JSON(http.MethodGet, "/json", http.StatusCreated, map[string]any{"id": 1, "tags": []string{"a"}})
	srv.Handle(http.MethodGet, "/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})
	srv.Handle(http.MethodGet, "/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	})
	srv.Handle(http.MethodGet, "/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	})
	srv.Handle(http.MethodGet, "/blank", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte("  \n"))
	})

	c := NewContext(srv.URL)
	ctx := context.Background()

	res, err := c.Get(ctx, "/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, ir.Object{"id": ir.Number(1), "tags": ir.Array{ir.String("a")}}, res.Body)

	res, err = c.Get(ctx, "/text")
	require.NoError(t, err)
	assert.Equal(t, ir.String("pong"), res.Body)
	assert.Equal(t, "pong", res.Text())

	_, err = c.Get(ctx, "/broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GET")

	res, err = c.Get(ctx, "/empty")
	require.NoError(t, err)
	assert.Equal(t, ir.String(""), res.Body, "204 carries no body")

	_, err = c.Get(ctx, "/blank")
	require.Error(t, err, "a 200 JSON response must carry a JSON document")
	assert.Contains(t, err.Error(), "decode GET "+srv.URL+"/blank response")
}

func TestContext_TransportError(t *testing.T) {
	srv := testutil.NewServer(t)
	url := srv.URL
	srv.Close()

	_, err := NewContext(url).Get(context.Background(), "/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET "+url+"/x")
}

func TestContext_Vars(t *testing.T) {
	c := NewContext("http://example.test")
	c.Set("id", ir.Number(42))
	require.NoError(t, c.SetAny("user", map[string]any{"name": "Ann"}))
	require.NoError(t, c.SetAny("phone", "+7"))

	v, ok := c.Var("id")
	require.True(t, ok)
	assert.Equal(t, ir.Number(42), v)

	assert.Equal(t, "42", c.String("id"))
	assert.Equal(t, "+7", c.String("phone"))
	assert.Equal(t, `{"name":"Ann"}`, c.String("user"))
	assert.Equal(t, "", c.String("missing"))

	snapshot := c.Vars()
	snapshot["id"] = ir.Number(0)
	v, _ = c.Var("id")
	assert.Equal(t, ir.Number(42), v)

	assert.Error(t, c.SetAny("bad", make(chan int)))
}

func TestContext_BaseURL(t *testing.T) {
	assert.Equal(t, "http://example.test", NewContext("http://example.test/").BaseURL())
}
