package core

import (
	"bufio"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/searchktools/mini-server/core/http"
	"github.com/searchktools/mini-server/core/observability"
)

// ConnState is the lifecycle stage of a connection
type ConnState int

// Connection states. A connection only moves forward through them.
const (
	StateAwaitingRequestLine ConnState = iota
	StateReadingHeaders
	StateDispatching
	StateWritingResponse
	StateClosed
)

var stateNames = [...]string{
	StateAwaitingRequestLine: "awaiting-request-line",
	StateReadingHeaders:      "reading-headers",
	StateDispatching:         "dispatching",
	StateWritingResponse:     "writing-response",
	StateClosed:              "closed",
}

func (s ConnState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// conn serves exactly one request and is then closed
type conn struct {
	e     *Engine
	rwc   net.Conn
	id    string
	br    *bufio.Reader
	state ConnState
	log   zerolog.Logger
}

func newConn(e *Engine) *conn {
	return &conn{
		e:   e,
		br:  bufio.NewReaderSize(nil, readBufferSize),
		log: zerolog.Nop(),
	}
}

// Reset implements pools.Resetter
func (c *conn) Reset() {
	c.rwc = nil
	c.id = ""
	c.br.Reset(nil)
	c.state = StateAwaitingRequestLine
	c.log = zerolog.Nop()
}

func (c *conn) attach(rwc net.Conn) {
	c.rwc = rwc
	c.id = uuid.NewString()
	c.br.Reset(rwc)
	c.state = StateAwaitingRequestLine
	c.log = c.e.log.With().
		Str("conn_id", c.id).
		Str("remote", rwc.RemoteAddr().String()).
		Logger()
}

func (c *conn) setState(s ConnState) {
	c.state = s
	c.log.Debug().Stringer("state", s).Msg("conn state")
}

func (c *conn) serve() {
	defer c.close()

	if d := c.e.readTimeout; d > 0 {
		c.rwc.SetReadDeadline(time.Now().Add(d))
	}

	resp := c.readAndDispatch()
	if resp == nil {
		return
	}

	c.setState(StateWritingResponse)
	if d := c.e.writeTimeout; d > 0 {
		c.rwc.SetWriteDeadline(time.Now().Add(d))
	}
	if _, err := resp.WriteTo(c.rwc); err != nil {
		c.log.Debug().Err(err).Msg("write response failed")
	}
}

// readAndDispatch returns nil when the peer left before sending a
// request line, otherwise the response to write.
func (c *conn) readAndDispatch() *http.Response {
	r := http.Reader{
		BR:             c.br,
		MaxHeaderBytes: c.e.maxHeaderBytes,
		MaxBodyBytes:   c.e.maxBodyBytes,
	}

	c.setState(StateAwaitingRequestLine)
	line, err := r.ReadRequestLine()
	if err != nil {
		if errors.Is(err, http.ErrPeerDisconnected) {
			c.log.Debug().Msg("peer disconnected")
			return nil
		}
		return c.badRequest(err)
	}

	c.setState(StateReadingHeaders)
	hdr, err := r.ReadHeaders()
	if err != nil {
		return c.badRequest(err)
	}
	body, err := r.ReadBody(line.Method, hdr)
	if err != nil {
		return c.badRequest(err)
	}

	c.setState(StateDispatching)
	req := &http.Request{
		ID:     c.id,
		Method: line.Method,
		Path:   line.Target,
		Proto:  line.Proto,
		Header: hdr,
		Body:   body,
	}
	return c.e.Dispatch(req)
}

func (c *conn) badRequest(err error) *http.Response {
	c.log.Warn().Err(err).Stringer("state", c.state).Msg("malformed request")
	c.e.monitor.RecordRequest(observability.KeyBadRequest, http.StatusBadRequest, 0)
	return http.BadRequest()
}

func (c *conn) close() {
	c.setState(StateClosed)
	c.rwc.Close()
	c.e.trackConn(c, false)
	c.e.connPool.Put(c)
}
