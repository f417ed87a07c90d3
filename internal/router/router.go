// Package router implements the static method/pattern route table that
// dispatches a parsed request to its handler. It binds directly against
// the server's RequestContext rather than *http.Request, since the
// acceptor/worker-pool core never constructs one.
package router

import "strings"

// MaxParams is the most path parameter bindings a single matched request
// can carry; a pattern with more never matches.
const MaxParams = 8

// Param is a single bound ":name" path segment.
type Param struct {
	Name  string
	Value string
}

// Handler processes a matched request. ctx is an opaque value supplied by
// the caller (normally *api.RequestContext); the router does not inspect
// it.
type Handler func(ctx interface{}, params []Param)

type route struct {
	method     string
	segments   []string
	handler    Handler
}

// Router is a static, read-only-after-startup table of method+pattern
// routes. Patterns use ":name" segments; a route matches a request only
// if both have the same segment count, scanning in registration order and
// returning the first match.
type Router struct {
	routes   []route
	NotFound Handler
}

// New creates an empty Router.
func New() *Router {
	return &Router{}
}

// Handle registers handler for method and pattern (e.g. "/api/videos/:id").
func (r *Router) Handle(method, pattern string, handler Handler) {
	r.routes = append(r.routes, route{
		method:   method,
		segments: splitPath(pattern),
		handler:  handler,
	})
}

// Match finds the first registered route whose method and segment count
// match path, binding any ":name" segments as Params. It returns
// (handler, params, true) on a match, or (nil, nil, false) otherwise.
func (r *Router) Match(method, path string) (Handler, []Param, bool) {
	requestSegments := splitPath(path)

	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		if len(rt.segments) != len(requestSegments) {
			continue
		}

		params := make([]Param, 0, MaxParams)
		matched := true
		for i, seg := range rt.segments {
			if strings.HasPrefix(seg, ":") {
				if len(params) >= MaxParams {
					matched = false
					break
				}
				params = append(params, Param{Name: seg[1:], Value: requestSegments[i]})
				continue
			}
			if seg != requestSegments[i] {
				matched = false
				break
			}
		}
		if matched {
			return rt.handler, params, true
		}
	}
	return nil, nil, false
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}
