package core

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/searchktools/mini-server/core/http"
	"github.com/searchktools/mini-server/core/middleware"
	"github.com/searchktools/mini-server/core/observability"
	"github.com/searchktools/mini-server/core/pools"
	"github.com/searchktools/mini-server/core/router"
)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithReadTimeout bounds the time to read one full request. Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.readTimeout = d }
}

// WithWriteTimeout bounds the time to write one response. Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) { e.writeTimeout = d }
}

// WithMaxConnections caps concurrently served connections. Zero disables the cap.
func WithMaxConnections(n int) Option {
	return func(e *Engine) { e.maxConnections = n }
}

// WithAcceptRate throttles accepted connections per second. Zero disables it.
func WithAcceptRate(perSecond float64) Option {
	return func(e *Engine) { e.acceptRate = perSecond }
}

// WithMaxHeaderBytes bounds the request line plus headers
func WithMaxHeaderBytes(n int) Option {
	return func(e *Engine) { e.maxHeaderBytes = n }
}

// WithMaxBodyBytes bounds the Content-Length a POST may announce
func WithMaxBodyBytes(n int64) Option {
	return func(e *Engine) { e.maxBodyBytes = n }
}

// WithReusePort sets SO_REUSEPORT on listeners created by Listen
func WithReusePort(on bool) Option {
	return func(e *Engine) { e.reusePort = on }
}

// WithMonitor replaces the request monitor
func WithMonitor(m *observability.Monitor) Option {
	return func(e *Engine) { e.monitor = m }
}

// Engine is an HTTP/1.1 server that serves one request per connection,
// each connection on its own goroutine.
type Engine struct {
	router   *router.Router
	pipeline *middleware.Pipeline
	log      zerolog.Logger
	monitor  *observability.Monitor

	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxConnections int
	acceptRate     float64
	maxHeaderBytes int
	maxBodyBytes   int64
	reusePort      bool

	connPool *pools.ConnectionPool[*conn]

	compileOnce sync.Once
	handler     router.HandlerFunc

	mu         sync.Mutex
	listeners  map[*net.Listener]struct{}
	conns      map[*conn]struct{}
	inShutdown atomic.Bool
	wg         sync.WaitGroup

	totalConns atomic.Uint64
}

// NewEngine creates a new engine instance
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		router:         router.New(),
		pipeline:       middleware.NewPipeline(),
		log:            zerolog.Nop(),
		monitor:        observability.NewMonitor(),
		readTimeout:    DefaultReadTimeout,
		writeTimeout:   DefaultWriteTimeout,
		maxConnections: DefaultMaxConnections,
		maxHeaderBytes: http.DefaultMaxHeaderBytes,
		maxBodyBytes:   http.DefaultMaxBodyBytes,
		listeners:      make(map[*net.Listener]struct{}),
		conns:          make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.connPool = pools.NewConnectionPool(func() *conn { return newConn(e) })
	return e
}

// GET registers a GET route
func (e *Engine) GET(pattern string, handler router.HandlerFunc) {
	e.router.Add(http.MethodGet, pattern, handler)
}

// POST registers a POST route
func (e *Engine) POST(pattern string, handler router.HandlerFunc) {
	e.router.Add(http.MethodPost, pattern, handler)
}

// Use adds middleware around dispatch. It must be called before the
// first request is dispatched.
func (e *Engine) Use(m ...middleware.Middleware) {
	e.pipeline.Use(m...)
}

// Routes lists the registered routes
func (e *Engine) Routes() []router.Route {
	return e.router.Routes()
}

// Monitor returns the request monitor
func (e *Engine) Monitor() *observability.Monitor {
	return e.monitor
}

// Logger returns the engine logger
func (e *Engine) Logger() zerolog.Logger {
	return e.log
}

// Dispatch produces the response for a parsed request. It never fails:
// unsupported methods and unknown paths get a 404, a handler returning
// nil gets a 500.
func (e *Engine) Dispatch(req *http.Request) *http.Response {
	e.compileOnce.Do(func() {
		e.handler = e.pipeline.Compile(e.route)
	})

	start := time.Now()
	resp := e.handler(req, nil)
	if resp == nil {
		resp = http.InternalServerError()
	}
	e.monitor.RecordRequest(e.routeKey(req), resp.Status, time.Since(start))
	return resp
}

func (e *Engine) route(req *http.Request, _ router.Params) *http.Response {
	if !req.IsSupportedMethod() {
		return http.NotFound()
	}
	route, params := e.router.Find(req.Method, req.Path)
	if route == nil {
		return http.NotFound()
	}
	return route.Handler(req, params)
}

func (e *Engine) routeKey(req *http.Request) string {
	if !req.IsSupportedMethod() {
		return observability.KeyNotFound
	}
	route, _ := e.router.Find(req.Method, req.Path)
	if route == nil {
		return observability.KeyNotFound
	}
	return route.Method + " " + route.Pattern
}

// Listen creates a TCP listener with the engine's socket options
func (e *Engine) Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: e.control}
	return lc.Listen(ctx, "tcp", addr)
}

// ListenAndServe listens on addr and serves until Shutdown
func (e *Engine) ListenAndServe(ctx context.Context, addr string) error {
	if e.inShutdown.Load() {
		return ErrServerClosed
	}
	ln, err := e.Listen(ctx, addr)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve accepts connections on ln until Shutdown is called or ln fails.
// ctx bounds waits on the accept rate limiter.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	if e.maxConnections > 0 {
		ln = netutil.LimitListener(ln, e.maxConnections)
	}
	if !e.trackListener(&ln, true) {
		ln.Close()
		return ErrServerClosed
	}
	defer e.trackListener(&ln, false)

	var limiter *rate.Limiter
	if e.acceptRate > 0 {
		burst := int(e.acceptRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(e.acceptRate), burst)
	}

	e.log.Info().
		Str("addr", ln.Addr().String()).
		Int("max_connections", e.maxConnections).
		Float64("accept_rate", e.acceptRate).
		Msg("server listening")

	var delay time.Duration
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				if e.shuttingDown() {
					return ErrServerClosed
				}
				return err
			}
		}

		rw, err := ln.Accept()
		if err != nil {
			if e.shuttingDown() {
				return ErrServerClosed
			}
			if te, ok := err.(interface{ Temporary() bool }); ok && te.Temporary() {
				if delay == 0 {
					delay = minAcceptDelay
				} else {
					delay *= 2
				}
				if delay > maxAcceptDelay {
					delay = maxAcceptDelay
				}
				e.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept error")
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0

		c := e.connPool.Get()
		c.attach(rw)
		if !e.trackConn(c, true) {
			rw.Close()
			e.connPool.Put(c)
			return ErrServerClosed
		}
		e.totalConns.Add(1)
		go c.serve()
	}
}

// Shutdown stops accepting connections and waits for in-flight ones to
// finish. When ctx expires first, remaining connections are closed and
// ctx's error is returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.inShutdown.Store(true)
	var lnErr error
	for ln := range e.listeners {
		if err := (*ln).Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			lnErr = err
		}
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return lnErr
	case <-ctx.Done():
		e.mu.Lock()
		for c := range e.conns {
			c.rwc.Close()
		}
		e.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

// Addr returns the address of one active listener, or nil
func (e *Engine) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ln := range e.listeners {
		return (*ln).Addr()
	}
	return nil
}

// ActiveConnections returns the number of connections being served
func (e *Engine) ActiveConnections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

func (e *Engine) shuttingDown() bool {
	return e.inShutdown.Load()
}

func (e *Engine) trackListener(ln *net.Listener, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if add {
		if e.shuttingDown() {
			return false
		}
		e.listeners[ln] = struct{}{}
	} else {
		delete(e.listeners, ln)
	}
	return true
}

func (e *Engine) trackConn(c *conn, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if add {
		if e.shuttingDown() {
			return false
		}
		e.conns[c] = struct{}{}
		e.wg.Add(1)
	} else {
		delete(e.conns, c)
		e.wg.Done()
	}
	return true
}
