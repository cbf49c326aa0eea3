package middleware

import (
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/mini-server/core/http"
	"github.com/searchktools/mini-server/core/router"
)

// Middleware wraps a handler
type Middleware func(next router.HandlerFunc) router.HandlerFunc

// Pipeline is an ordered middleware chain. The first middleware added
// is the outermost one.
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		middlewares: make([]Middleware, 0, 4),
	}
}

// Use appends middlewares to the pipeline
func (p *Pipeline) Use(m ...Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, m...)
	return p
}

// Len returns the number of middlewares
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Compile wraps final with every middleware
func (p *Pipeline) Compile(final router.HandlerFunc) router.HandlerFunc {
	h := final
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		h = p.middlewares[i](h)
	}
	return h
}

// Recovery turns a handler panic into a 500 response
func Recovery(log zerolog.Logger) Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(req *http.Request, params router.Params) (resp *http.Response) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Str("conn_id", req.ID).
						Str("method", req.Method).
						Str("path", req.Path).
						Interface("panic", err).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					resp = http.InternalServerError()
				}
			}()
			return next(req, params)
		}
	}
}

// AccessLog logs one line per dispatched request
func AccessLog(log zerolog.Logger) Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(req *http.Request, params router.Params) *http.Response {
			start := time.Now()
			resp := next(req, params)

			ev := log.Info()
			if resp != nil && resp.Status >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			status := 0
			size := 0
			if resp != nil {
				status = resp.Status
				size = resp.ContentLength()
			}
			ev.Str("conn_id", req.ID).
				Str("method", req.Method).
				Str("path", req.Path).
				Int("status", status).
				Int("bytes", size).
				Dur("duration", time.Since(start)).
				Msg("request")
			return resp
		}
	}
}
