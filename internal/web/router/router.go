// Package router wraps chi with a registry of named routes so the API can be
// listed and URLs can be generated from route names.
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/geomd/metaschema/internal/web/middleware"
)

// RouteInfo describes one registered route
type RouteInfo struct {
	Method     string           `json:"method"`
	Pattern    string           `json:"pattern"`
	Name       string           `json:"name,omitempty"`
	Parameters []RouteParameter `json:"parameters,omitempty"`
}

// RouteParameter describes a path parameter of a route
type RouteParameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Named sets a name for the route, used by URL
func (ri *RouteInfo) Named(name string) *RouteInfo {
	ri.Name = name
	return ri
}

// registry is shared by a router and its groups
type registry struct {
	mu     sync.RWMutex
	routes []*RouteInfo
}

// Router manages HTTP routing using chi
type Router struct {
	mux    chi.Router
	prefix string
	reg    *registry
}

// NewRouter creates a new Router instance
func NewRouter() *Router {
	return &Router{mux: chi.NewRouter(), reg: &registry{}}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware; it must be called before routes are added to this router
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodGet, pattern, handler)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodPost, pattern, handler)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodDelete, pattern, handler)
}

// Handle registers handler for method and pattern
func (r *Router) Handle(method, pattern string, handler http.Handler) *RouteInfo {
	r.mux.Method(method, pattern, handler)

	full := r.prefix + pattern
	if full != "/" {
		full = strings.TrimSuffix(full, "/")
	}
	info := &RouteInfo{
		Method:     method,
		Pattern:    full,
		Parameters: extractParameters(full),
	}

	r.reg.mu.Lock()
	r.reg.routes = append(r.reg.routes, info)
	r.reg.mu.Unlock()
	return info
}

// Group creates an inline group that can carry its own middleware
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(cr chi.Router) {
		fn(&Router{mux: cr, prefix: r.prefix, reg: r.reg})
	})
}

// Route mounts a sub-router under prefix
func (r *Router) Route(prefix string, fn func(r *Router)) {
	r.mux.Route(prefix, func(cr chi.Router) {
		fn(&Router{mux: cr, prefix: r.prefix + prefix, reg: r.reg})
	})
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

// Routes returns the registered routes ordered by pattern, then method
func (r *Router) Routes() []RouteInfo {
	r.reg.mu.RLock()
	out := make([]RouteInfo, len(r.reg.routes))
	for i, ri := range r.reg.routes {
		out[i] = *ri
	}
	r.reg.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// RouteList returns the routes as an aligned text table
func (r *Router) RouteList() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-8s %-40s %s\n", "METHOD", "PATTERN", "NAME")
	for _, info := range r.Routes() {
		fmt.Fprintf(&sb, "%-8s %-40s %s\n", info.Method, info.Pattern, info.Name)
	}
	return sb.String()
}

// URL builds the path of the named route, substituting params
func (r *Router) URL(name string, params map[string]string) (string, error) {
	r.reg.mu.RLock()
	var route *RouteInfo
	for _, ri := range r.reg.routes {
		if ri.Name == name {
			route = ri
			break
		}
	}
	r.reg.mu.RUnlock()

	if route == nil {
		return "", fmt.Errorf("route not found: %s", name)
	}

	url := route.Pattern
	for key, value := range params {
		url = strings.ReplaceAll(url, "{"+key+"}", value)
	}
	if strings.Contains(url, "{") {
		return "", fmt.Errorf("missing parameter values for route: %s", name)
	}
	return url, nil
}

func extractParameters(pattern string) []RouteParameter {
	var params []RouteParameter
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.Trim(part, "{}")
			params = append(params, RouteParameter{Name: name, Type: inferParameterType(name)})
		}
	}
	return params
}

func inferParameterType(name string) string {
	if name == "id" || strings.HasSuffix(name, "_id") || strings.HasSuffix(name, "ID") {
		return "uuid"
	}
	return "string"
}
