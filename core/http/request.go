package http

// Supported request methods
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Header maps a header name to its value. Keys are matched case-sensitively
// and a repeated header overwrites the earlier value.
type Header map[string]string

// Get returns the value for key, or "" if absent
func (h Header) Get(key string) string {
	return h[key]
}

// Lookup returns the value for key and whether it was present
func (h Header) Lookup(key string) (string, bool) {
	v, ok := h[key]
	return v, ok
}

// Request is a parsed HTTP/1.1 request. It is built once per connection
// and must not be modified after the parser returns it.
type Request struct {
	// ID identifies the connection that carried the request
	ID string

	Method string
	Path   string
	Proto  string

	Header Header

	// Body is only populated for POST requests carrying Content-Length
	Body []byte
}

// IsSupportedMethod reports whether the method can be routed at all
func (r *Request) IsSupportedMethod() bool {
	return r.Method == MethodGet || r.Method == MethodPost
}
