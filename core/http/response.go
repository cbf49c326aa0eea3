package http

import (
	"io"
	"net"
	"sort"
	"strconv"

	"github.com/searchktools/mini-server/core/pools"
)

// Response is built by a handler and serialized exactly once.
// Content-Length is always derived from Body when written.
type Response struct {
	Status int
	Header Header
	Body   []byte
}

// NewResponse creates a response with a Content-Type header
func NewResponse(status int, contentType string, body []byte) *Response {
	return &Response{
		Status: status,
		Header: Header{HeaderContentType: contentType},
		Body:   body,
	}
}

// Text creates a text/plain response
func Text(status int, s string) *Response {
	return NewResponse(status, ContentTypeText, []byte(s))
}

// Error creates a response whose body is the status line text,
// e.g. "404 Not Found".
func Error(status int) *Response {
	return Text(status, strconv.Itoa(status)+" "+StatusText(status))
}

func NotFound() *Response            { return Error(StatusNotFound) }
func BadRequest() *Response          { return Error(StatusBadRequest) }
func InternalServerError() *Response { return Error(StatusInternalServerError) }

// SetHeader sets a response header
func (r *Response) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(Header)
	}
	r.Header[key] = value
}

// ContentLength is the exact number of body bytes that will be written
func (r *Response) ContentLength() int {
	return len(r.Body)
}

// AppendHead appends the status line and header block to dst.
// Content-Length and Connection are always computed here; values for
// them in Header are ignored.
func (r *Response) AppendHead(dst []byte) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(r.Status), 10)
	dst = append(dst, ' ')
	dst = append(dst, StatusText(r.Status)...)
	dst = append(dst, "\r\n"...)

	if ct, ok := r.Header[HeaderContentType]; ok {
		dst = appendHeader(dst, HeaderContentType, ct)
	}
	if ce, ok := r.Header[HeaderContentEncoding]; ok {
		dst = appendHeader(dst, HeaderContentEncoding, ce)
	}

	extra := make([]string, 0, len(r.Header))
	for k := range r.Header {
		switch k {
		case HeaderContentType, HeaderContentEncoding, HeaderContentLength, HeaderConnection:
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		dst = appendHeader(dst, k, r.Header[k])
	}

	dst = append(dst, HeaderContentLength...)
	dst = append(dst, ": "...)
	dst = strconv.AppendInt(dst, int64(len(r.Body)), 10)
	dst = append(dst, "\r\n"...)
	dst = appendHeader(dst, HeaderConnection, "close")
	return append(dst, "\r\n"...)
}

// WriteTo writes the serialized response. The head and body go out in
// a single vectored write when w is a TCP connection.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	buf := pools.AcquireBuffer(256)
	defer pools.ReleaseBuffer(buf)

	*buf = r.AppendHead((*buf)[:0])
	bufs := net.Buffers{*buf}
	if len(r.Body) > 0 {
		bufs = append(bufs, r.Body)
	}
	return bufs.WriteTo(w)
}

func appendHeader(dst []byte, key, value string) []byte {
	dst = append(dst, key...)
	dst = append(dst, ": "...)
	dst = appendSanitized(dst, value)
	return append(dst, "\r\n"...)
}

// appendSanitized drops CR, LF and other control bytes except HTAB
func appendSanitized(dst []byte, v string) []byte {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == 0x7f || (c < 0x20 && c != '\t') {
			continue
		}
		dst = append(dst, c)
	}
	return dst
}
