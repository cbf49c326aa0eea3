package http

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Default parser limits
const (
	DefaultMaxHeaderBytes = 64 << 10
	DefaultMaxBodyBytes   = 10 << 20
)

var errHeaderTooLarge = errors.New("header section exceeds limit")

// RequestLine is the first phase of a parsed request
type RequestLine struct {
	Method string
	Target string
	Proto  string
}

// Reader parses one request from a buffered stream in two phases:
// the request line, then the header block (plus an optional body).
type Reader struct {
	BR *bufio.Reader

	// MaxHeaderBytes bounds the request line and all header lines together
	MaxHeaderBytes int

	// MaxBodyBytes bounds the Content-Length a POST may announce
	MaxBodyBytes int64

	used int
}

// NewReader creates a Reader with the default limits
func NewReader(br *bufio.Reader) *Reader {
	return &Reader{
		BR:             br,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}
}

// ParseRequest parses a complete request held in memory
func ParseRequest(data []byte) (*Request, error) {
	return NewReader(bufio.NewReader(bytes.NewReader(data))).ReadRequest()
}

// ReadRequest runs every phase and returns the immutable request
func (r *Reader) ReadRequest() (*Request, error) {
	line, err := r.ReadRequestLine()
	if err != nil {
		return nil, err
	}
	hdr, err := r.ReadHeaders()
	if err != nil {
		return nil, err
	}
	body, err := r.ReadBody(line.Method, hdr)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: line.Method,
		Path:   line.Target,
		Proto:  line.Proto,
		Header: hdr,
		Body:   body,
	}, nil
}

// ReadRequestLine reads "METHOD TARGET VERSION". The version token is
// optional; fewer than two tokens is malformed.
func (r *Reader) ReadRequestLine() (RequestLine, error) {
	line, err := r.readLine()
	if err != nil {
		if isDisconnect(err) {
			return RequestLine{}, ErrPeerDisconnected
		}
		return RequestLine{}, malformed("read request line", err)
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return RequestLine{}, malformed("request line has fewer than 2 tokens", nil)
	}

	rl := RequestLine{Method: parts[0], Target: parts[1]}
	if len(parts) == 3 {
		rl.Proto = parts[2]
	}
	if rl.Method == "" {
		return RequestLine{}, malformed("empty method", nil)
	}
	if !strings.HasPrefix(rl.Target, "/") {
		return RequestLine{}, malformed("target must start with '/'", nil)
	}
	return rl, nil
}

// ReadHeaders reads header lines until an empty line or end of stream.
// Lines without a ": " separator are skipped.
func (r *Reader) ReadHeaders() (Header, error) {
	h := make(Header)
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return h, nil
			}
			return nil, malformed("read headers", err)
		}
		if line == "" {
			return h, nil
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		h[name] = value
	}
}

// ReadBody reads exactly Content-Length bytes for POST requests.
// Other methods never have their body consumed.
func (r *Reader) ReadBody(method string, h Header) ([]byte, error) {
	if method != MethodPost {
		return nil, nil
	}
	v, ok := h.Lookup(HeaderContentLength)
	if !ok {
		return nil, nil
	}
	n, err := ParseContentLength(v)
	if err != nil {
		return nil, err
	}
	if r.MaxBodyBytes > 0 && n > r.MaxBodyBytes {
		return nil, malformed("body exceeds limit", nil)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r.BR, body); err != nil {
		return nil, malformed("short body", err)
	}
	return body, nil
}

// ParseContentLength accepts only a non-negative decimal integer
func ParseContentLength(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, malformed("empty Content-Length", nil)
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, malformed("non-numeric Content-Length", nil)
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, malformed("Content-Length out of range", err)
	}
	return n, nil
}

// readLine is similar to readLineSlice() in net/textproto/reader.go
func (r *Reader) readLine() (string, error) {
	var line []byte
	for {
		l, more, err := r.BR.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}

		r.used += len(l)
		if !more {
			r.used += 2
		}
		if r.MaxHeaderBytes > 0 && r.used > r.MaxHeaderBytes {
			return "", errHeaderTooLarge
		}

		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			return string(line), nil
		}
	}
}

// isDisconnect reports whether err means the peer went away or idled out
// before sending anything.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
