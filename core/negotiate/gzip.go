// Package negotiate decides the Content-Encoding of a response from the
// request's Accept-Encoding header.
package negotiate

import (
	"bytes"
	"compress/gzip"
	"strings"
	"sync"

	"github.com/searchktools/mini-server/core/http"
	"github.com/searchktools/mini-server/core/pools"
)

// EncodingGzip is the only content coding the server produces
const EncodingGzip = "gzip"

var writerPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(nil)
	},
}

// AcceptsGzip reports whether the comma separated header value lists
// the exact token "gzip".
func AcceptsGzip(acceptEncoding string) bool {
	for _, token := range strings.Split(acceptEncoding, ",") {
		if strings.TrimSpace(token) == EncodingGzip {
			return true
		}
	}
	return false
}

// Gzip compresses body. The result is a fresh slice owned by the caller.
func Gzip(body []byte) ([]byte, error) {
	buf := pools.AcquireBuffer(len(body)/2 + 64)
	defer pools.ReleaseBuffer(buf)

	out := bytes.NewBuffer((*buf)[:0])
	zw := writerPool.Get().(*gzip.Writer)
	defer writerPool.Put(zw)
	zw.Reset(out)

	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(out.Bytes()), nil
}

// Apply compresses resp.Body and sets Content-Encoding when req accepts
// gzip. It never fails: on any problem the response is left as is.
func Apply(req *http.Request, resp *http.Response) {
	ae, ok := req.Header.Lookup(http.HeaderAcceptEncoding)
	if !ok || !AcceptsGzip(ae) {
		return
	}
	compressed, err := Gzip(resp.Body)
	if err != nil {
		return
	}
	resp.Body = compressed
	resp.SetHeader(http.HeaderContentEncoding, EncodingGzip)
}
