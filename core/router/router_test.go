package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/mini-server/core/http"
)

func named(name string) HandlerFunc {
	return func(*http.Request, Params) *http.Response {
		return http.Text(http.StatusOK, name)
	}
}

func newTestRouter() *Router {
	r := New()
	r.Add("GET", "/", named("root"))
	r.Add("GET", "/echo/*rest", named("echo"))
	r.Add("GET", "/user-agent", named("ua"))
	r.Add("GET", "/files/*name", named("files-get"))
	r.Add("POST", "/files/*name", named("files-post"))
	return r
}

func TestRouter_Static(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method      string
		path        string
		shouldMatch bool
	}{
		{"GET", "/", true},
		{"GET", "/user-agent", true},
		{"POST", "/user-agent", false},
		{"GET", "/user-agent/", false},
		{"GET", "/nope", false},
		{"DELETE", "/", false},
	}

	for _, tt := range tests {
		route, params := r.Find(tt.method, tt.path)
		assert.Equal(t, tt.shouldMatch, route != nil, "%s %s", tt.method, tt.path)
		assert.Nil(t, params)
	}
}

func TestRouter_WildcardCapturesRemainder(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		path string
		rest string
	}{
		{"/echo/hello", "hello"},
		{"/echo/a/b/c", "a/b/c"},
		{"/echo/", ""},
	}

	for _, tt := range tests {
		route, params := r.Find("GET", tt.path)
		require.NotNil(t, route, tt.path)
		assert.Equal(t, "/echo/*rest", route.Pattern)
		assert.Equal(t, tt.rest, params["rest"])
	}

	route, _ := r.Find("GET", "/echo")
	assert.Nil(t, route)
}

func TestRouter_WildcardByMethod(t *testing.T) {
	r := newTestRouter()

	get, params := r.Find("GET", "/files/a.txt")
	require.NotNil(t, get)
	assert.Equal(t, "GET", get.Method)
	assert.Equal(t, "a.txt", params["name"])

	post, params := r.Find("POST", "/files/dir/a.txt")
	require.NotNil(t, post)
	assert.Equal(t, "POST", post.Method)
	assert.Equal(t, "dir/a.txt", params["name"])

	put, _ := r.Find("PUT", "/files/a.txt")
	assert.Nil(t, put)
}

func TestRouter_LongestPrefixWins(t *testing.T) {
	r := New()
	r.Add("GET", "/a/*x", named("short"))
	r.Add("GET", "/a/b/*y", named("long"))

	route, params := r.Find("GET", "/a/b/c")
	require.NotNil(t, route)
	assert.Equal(t, "/a/b/*y", route.Pattern)
	assert.Equal(t, "c", params["y"])

	route, params = r.Find("GET", "/a/c")
	require.NotNil(t, route)
	assert.Equal(t, "c", params["x"])
}

func TestRouter_InvalidPatternsPanic(t *testing.T) {
	r := New()
	assert.Panics(t, func() { r.Add("GET", "echo", named("x")) })
	assert.Panics(t, func() { r.Add("GET", "/echo/*", named("x")) })
	assert.Panics(t, func() { r.Add("GET", "/echo/*a/b", named("x")) })
	assert.Panics(t, func() { r.Add("GET", "/x", nil) })

	r.Add("GET", "/f/*name", named("x"))
	assert.Panics(t, func() { r.Add("POST", "/f/*other", named("x")) })
}

func TestRouter_Routes(t *testing.T) {
	routes := newTestRouter().Routes()
	require.Len(t, routes, 5)
	assert.Equal(t, "/", routes[0].Pattern)
	assert.Equal(t, "/files/*name", routes[2].Pattern)
	assert.Equal(t, "GET", routes[2].Method)
	assert.Equal(t, "POST", routes[3].Method)
}

func BenchmarkRouterStatic(b *testing.B) {
	r := newTestRouter()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/user-agent")
	}
}

func BenchmarkRouterWildcard(b *testing.B) {
	r := newTestRouter()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/files/some/file.txt")
	}
}
