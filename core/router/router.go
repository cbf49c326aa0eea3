package router

import (
	"sort"
	"strings"

	"github.com/searchktools/mini-server/core/http"
)

// Params holds values captured by wildcard routes
type Params map[string]string

// HandlerFunc produces the response for a matched request
type HandlerFunc func(req *http.Request, params Params) *http.Response

// Route is a registered (method, pattern) -> handler binding
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Router matches exact paths first, then wildcard prefixes.
// Routes are registered at startup; lookups never mutate the router.
type Router struct {
	// Static routes: path -> method -> route
	staticRoutes map[string]map[string]*Route

	// Wildcard routes, longest prefix first
	wildcardRoutes []*wildcardRoute
}

type wildcardRoute struct {
	prefix   string
	paramKey string
	routes   map[string]*Route
}

// New creates an empty router
func New() *Router {
	return &Router{
		staticRoutes: make(map[string]map[string]*Route),
	}
}

// Add registers a route. A pattern ending in "*name" matches every path
// with the text before '*' as prefix and captures the remainder as name.
func (r *Router) Add(method, pattern string, handler HandlerFunc) {
	if pattern == "" || pattern[0] != '/' {
		panic("path must begin with '/'")
	}
	if handler == nil {
		panic("nil handler for " + method + " " + pattern)
	}

	route := &Route{Method: method, Pattern: pattern, Handler: handler}

	idx := strings.IndexByte(pattern, '*')
	if idx < 0 {
		if r.staticRoutes[pattern] == nil {
			r.staticRoutes[pattern] = make(map[string]*Route)
		}
		r.staticRoutes[pattern][method] = route
		return
	}

	paramKey := pattern[idx+1:]
	if paramKey == "" || strings.ContainsAny(paramKey, "/*") {
		panic("wildcard must be named and end the pattern: " + pattern)
	}
	r.addWildcardRoute(pattern[:idx], paramKey, route)
}

// GET registers a GET route
func (r *Router) GET(pattern string, handler HandlerFunc) {
	r.Add(http.MethodGet, pattern, handler)
}

// POST registers a POST route
func (r *Router) POST(pattern string, handler HandlerFunc) {
	r.Add(http.MethodPost, pattern, handler)
}

func (r *Router) addWildcardRoute(prefix, paramKey string, route *Route) {
	for _, wr := range r.wildcardRoutes {
		if wr.prefix == prefix {
			if wr.paramKey != paramKey {
				panic("conflicting wildcard names for prefix " + prefix)
			}
			wr.routes[route.Method] = route
			return
		}
	}

	r.wildcardRoutes = append(r.wildcardRoutes, &wildcardRoute{
		prefix:   prefix,
		paramKey: paramKey,
		routes:   map[string]*Route{route.Method: route},
	})
	sort.SliceStable(r.wildcardRoutes, func(i, j int) bool {
		return len(r.wildcardRoutes[i].prefix) > len(r.wildcardRoutes[j].prefix)
	})
}

// Find returns the route for method and path, or nil
func (r *Router) Find(method, path string) (*Route, Params) {
	if methods, ok := r.staticRoutes[path]; ok {
		if route, ok := methods[method]; ok {
			return route, nil
		}
	}

	for _, wr := range r.wildcardRoutes {
		if !strings.HasPrefix(path, wr.prefix) {
			continue
		}
		if route, ok := wr.routes[method]; ok {
			return route, Params{wr.paramKey: path[len(wr.prefix):]}
		}
	}
	return nil, nil
}

// Routes lists every registered route sorted by pattern then method
func (r *Router) Routes() []Route {
	var out []Route
	for _, methods := range r.staticRoutes {
		for _, route := range methods {
			out = append(out, *route)
		}
	}
	for _, wr := range r.wildcardRoutes {
		for _, route := range wr.routes {
			out = append(out, *route)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}
