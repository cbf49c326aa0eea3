// Package handler holds the route handlers served by the engine.
package handler

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/searchktools/mini-server/core/http"
	"github.com/searchktools/mini-server/core/negotiate"
	"github.com/searchktools/mini-server/core/router"
	"github.com/searchktools/mini-server/core/storage"
)

// Greeting is the body served at "/"
const Greeting = "Hello, World!"

// Registrar is satisfied by the engine and by *router.Router
type Registrar interface {
	GET(pattern string, h router.HandlerFunc)
	POST(pattern string, h router.HandlerFunc)
}

// Register binds every route. store may be nil, in which case the
// /files routes are not served.
func Register(r Registrar, store *storage.Store, log zerolog.Logger) {
	r.GET("/", Root())
	r.GET("/echo/*rest", Echo())
	r.GET("/user-agent", UserAgent())
	if store != nil {
		r.GET("/files/*name", ReadFile(store, log))
		r.POST("/files/*name", WriteFile(store, log))
	}
}

// Root serves the fixed greeting
func Root() router.HandlerFunc {
	return func(*http.Request, router.Params) *http.Response {
		return http.Text(http.StatusOK, Greeting)
	}
}

// Echo returns the path remainder, gzip-encoded when the client accepts it
func Echo() router.HandlerFunc {
	return func(req *http.Request, params router.Params) *http.Response {
		resp := http.Text(http.StatusOK, params["rest"])
		negotiate.Apply(req, resp)
		return resp
	}
}

// UserAgent reflects the User-Agent header, or an empty body
func UserAgent() router.HandlerFunc {
	return func(req *http.Request, _ router.Params) *http.Response {
		return http.Text(http.StatusOK, req.Header.Get(http.HeaderUserAgent))
	}
}

// ReadFile serves stored bytes verbatim. Content encoding is never
// applied on this route.
func ReadFile(store *storage.Store, log zerolog.Logger) router.HandlerFunc {
	return func(req *http.Request, params router.Params) *http.Response {
		name := params["name"]
		data, err := store.Read(name)
		switch {
		case err == nil:
			return http.NewResponse(http.StatusOK, http.ContentTypeOctetStream, data)
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
			return http.NotFound()
		default:
			log.Error().Err(err).Str("conn_id", req.ID).Str("file", name).Msg("read file failed")
			return http.InternalServerError()
		}
	}
}

// WriteFile stores the request body under the captured name
func WriteFile(store *storage.Store, log zerolog.Logger) router.HandlerFunc {
	return func(req *http.Request, params router.Params) *http.Response {
		v, ok := req.Header.Lookup(http.HeaderContentLength)
		if !ok {
			return http.BadRequest()
		}
		n, err := http.ParseContentLength(v)
		if err != nil || n != int64(len(req.Body)) {
			return http.BadRequest()
		}

		name := params["name"]
		err = store.Write(name, req.Body)
		switch {
		case err == nil:
			return http.NewResponse(http.StatusCreated, http.ContentTypeText, nil)
		case errors.Is(err, storage.ErrInvalidName):
			return http.BadRequest()
		default:
			log.Error().Err(err).Str("conn_id", req.ID).Str("file", name).Msg("write file failed")
			return http.InternalServerError()
		}
	}
}
