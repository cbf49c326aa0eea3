package handler

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/mini-server/core/http"
	"github.com/searchktools/mini-server/core/router"
	"github.com/searchktools/mini-server/core/storage"
)

func setup(t *testing.T) (*router.Router, *storage.Store) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	r := router.New()
	Register(r, store, zerolog.Nop())
	return r, store
}

func serve(t *testing.T, r *router.Router, req *http.Request) *http.Response {
	t.Helper()
	route, params := r.Find(req.Method, req.Path)
	require.NotNil(t, route, "%s %s", req.Method, req.Path)
	resp := route.Handler(req, params)
	require.NotNil(t, resp)
	return resp
}

func get(path string, h http.Header) *http.Request {
	if h == nil {
		h = http.Header{}
	}
	return &http.Request{Method: http.MethodGet, Path: path, Header: h}
}

func TestRoot(t *testing.T) {
	r, _ := setup(t)
	resp := serve(t, r, get("/", nil))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, Greeting, string(resp.Body))
	assert.Equal(t, http.ContentTypeText, resp.Header.Get(http.HeaderContentType))
}

func TestEcho(t *testing.T) {
	r, _ := setup(t)

	resp := serve(t, r, get("/echo/a/b c", nil))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "a/b c", string(resp.Body))
	_, encoded := resp.Header.Lookup(http.HeaderContentEncoding)
	assert.False(t, encoded)

	resp = serve(t, r, get("/echo/abc", http.Header{http.HeaderAcceptEncoding: "br, gzip"}))
	assert.Equal(t, "gzip", resp.Header.Get(http.HeaderContentEncoding))
	zr, err := gzip.NewReader(bytes.NewReader(resp.Body))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(plain))

	resp = serve(t, r, get("/echo/abc", http.Header{http.HeaderAcceptEncoding: "GZIP"}))
	assert.Equal(t, "abc", string(resp.Body))
}

func TestUserAgent(t *testing.T) {
	r, _ := setup(t)

	resp := serve(t, r, get("/user-agent", http.Header{http.HeaderUserAgent: "test-agent"}))
	assert.Equal(t, "test-agent", string(resp.Body))

	resp = serve(t, r, get("/user-agent", nil))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestReadFile(t *testing.T) {
	r, store := setup(t)
	data := []byte{0x00, 0xff, '\n'}
	require.NoError(t, os.WriteFile(filepath.Join(store.Base(), "bin"), data, 0o644))

	resp := serve(t, r, get("/files/bin", http.Header{http.HeaderAcceptEncoding: "gzip"}))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, data, resp.Body)
	assert.Equal(t, http.ContentTypeOctetStream, resp.Header.Get(http.HeaderContentType))
	_, encoded := resp.Header.Lookup(http.HeaderContentEncoding)
	assert.False(t, encoded)

	for _, p := range []string{"/files/missing.txt", "/files/../../etc/passwd", "/files/"} {
		resp = serve(t, r, get(p, nil))
		assert.Equal(t, http.StatusNotFound, resp.Status, p)
		assert.Equal(t, "404 Not Found", string(resp.Body))
	}
}

func TestWriteFile(t *testing.T) {
	r, store := setup(t)

	post := func(path string, h http.Header, body []byte) *http.Response {
		return serve(t, r, &http.Request{Method: http.MethodPost, Path: path, Header: h, Body: body})
	}

	resp := post("/files/dir/a.txt", http.Header{http.HeaderContentLength: "3"}, []byte("abc"))
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Empty(t, resp.Body)

	got, err := store.Read("dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	tests := []struct {
		name string
		path string
		h    http.Header
		body []byte
	}{
		{"missing length", "/files/b.txt", http.Header{}, nil},
		{"non-numeric length", "/files/b.txt", http.Header{http.HeaderContentLength: "x"}, nil},
		{"negative length", "/files/b.txt", http.Header{http.HeaderContentLength: "-1"}, nil},
		{"escaping name", "/files/../b.txt", http.Header{http.HeaderContentLength: "1"}, []byte("b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(tt.path, tt.h, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, "400 Bad Request", string(resp.Body))
		})
	}
}

func TestWriteFile_StorageFailure(t *testing.T) {
	r, store := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Base(), "plain"), []byte("x"), 0o644))

	// a regular file cannot become a parent directory
	resp := serve(t, r, &http.Request{
		Method: http.MethodPost,
		Path:   "/files/plain/child.txt",
		Header: http.Header{http.HeaderContentLength: "1"},
		Body:   []byte("y"),
	})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestRegister_WithoutStore(t *testing.T) {
	r := router.New()
	Register(r, nil, zerolog.Nop())

	route, _ := r.Find(http.MethodGet, "/files/a")
	assert.Nil(t, route)
	assert.Len(t, r.Routes(), 3)
}
