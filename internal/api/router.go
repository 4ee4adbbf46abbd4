package api

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

type route struct {
	pattern string
	handler types.Handler
}

// Router resolves paths against routes in registration order. The first
// matching route wins, regardless of pattern length.
type Router struct {
	routes         []route
	defaultHandler types.Handler
	frozen         atomic.Bool
}

func NewRouter() *Router {
	return &Router{
		defaultHandler: types.HandlerFunc(func(req *types.Request) (*types.Response, error) {
			return types.Text(404, "Not Found"), nil
		}),
	}
}

// adds a handler for a pattern. Every pattern except the root "/" matches any
// path it is a prefix of; the root matches only itself.
func (r *Router) RegisterRoute(pattern string, h types.Handler) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("api: route %q registered after first lookup", pattern))
	}
	if !strings.HasPrefix(pattern, "/") {
		panic(fmt.Sprintf("api: route %q must start with /", pattern))
	}
	r.routes = append(r.routes, route{pattern: pattern, handler: h})
}

func (r *Router) RegisterRouteFunc(pattern string, f func(req *types.Request) (*types.Response, error)) {
	r.RegisterRoute(pattern, types.HandlerFunc(f))
}

func (r *Router) SetDefaultHandler(h types.Handler) {
	if r.frozen.Load() {
		panic("api: default handler set after first lookup")
	}
	r.defaultHandler = h
}

// Resolve returns the handler for path. The table is read-only from the first
// call on, so concurrent lookups need no lock.
func (r *Router) Resolve(path string) types.Handler {
	r.frozen.Store(true)
	for _, rt := range r.routes {
		if matches(rt.pattern, path) {
			return rt.handler
		}
	}
	return r.defaultHandler
}

// Routes lists registered patterns in lookup order.
func (r *Router) Routes() []string {
	patterns := make([]string, len(r.routes))
	for i, rt := range r.routes {
		patterns[i] = rt.pattern
	}
	return patterns
}

func matches(pattern, path string) bool {
	if pattern == "/" {
		return path == "/"
	}
	return strings.HasPrefix(path, pattern)
}
