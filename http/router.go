package http

import (
	"sort"
	"strings"
)

// Route binds one method + path pattern to a handler. Registration
// order is the match order; there is no specificity ranking and no
// de-duplication, so a later exact duplicate is simply unreachable.
type Route struct {
	Method  string
	Pattern string
	Handler Handler
}

// Router dispatches requests against an ordered route list. Routes are
// expected to be registered before the server starts accepting
// traffic; the list is read-only after that.
type Router struct {
	routes []Route
}

func NewRouter() *Router {
	return &Router{routes: make([]Route, 0)}
}

// Handle appends a route. Middleware wraps the handler inside-out.
func (r *Router) Handle(method, pattern string, handler Handler, middleware ...Middleware) {
	for _, mw := range middleware {
		handler = mw(handler)
	}
	r.routes = append(r.routes, Route{
		Method:  strings.ToUpper(method),
		Pattern: pattern,
		Handler: handler,
	})
}

func (r *Router) GET(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("GET", pattern, handler, middleware...)
}

func (r *Router) POST(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("POST", pattern, handler, middleware...)
}

func (r *Router) PUT(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("PUT", pattern, handler, middleware...)
}

func (r *Router) PATCH(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("PATCH", pattern, handler, middleware...)
}

func (r *Router) DELETE(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("DELETE", pattern, handler, middleware...)
}

func (r *Router) OPTIONS(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("OPTIONS", pattern, handler, middleware...)
}

func (r *Router) HEAD(pattern string, handler Handler, middleware ...Middleware) {
	r.Handle("HEAD", pattern, handler, middleware...)
}

// Route dispatches req to the first route whose pattern and method
// both match, installing captured path parameters first. When only the
// method differed it answers 405 with a sorted Allow header; when
// nothing matched, 404; when the request carries no method token at
// all, 400 without touching the route list. The return value reports
// whether a handler ran.
func (r *Router) Route(req *Request, res *Response) bool {
	if req.MethodRaw == "" {
		res.Status = StatusBadRequest
		res.Reason = ""
		res.Headers["Content-Type"] = "text/plain"
		res.Body = []byte("Bad Request")
		return false
	}

	allowed := make(map[string]struct{})

	for _, route := range r.routes {
		params, ok := matchPattern(route.Pattern, req.Path)
		if !ok {
			continue
		}
		allowed[route.Method] = struct{}{}
		if route.Method == req.MethodRaw {
			req.PathParams = params
			route.Handler(req, res)
			return true
		}
	}

	if len(allowed) > 0 {
		methods := make([]string, 0, len(allowed))
		for m := range allowed {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		res.Status = StatusMethodNotAllowed
		res.Reason = ""
		res.Headers["Allow"] = strings.Join(methods, ", ")
		res.Headers["Content-Type"] = "text/plain"
		res.Body = []byte("Method Not Allowed")
		return false
	}

	res.Status = StatusNotFound
	res.Reason = ""
	res.Headers["Content-Type"] = "text/plain"
	res.Body = []byte("Not Found")
	return false
}

// matchPattern walks pattern and path segment by segment. A literal
// segment must match exactly, a :name segment binds one path segment,
// and a trailing *name segment binds the rest of the path from the
// current segment's byte offset onward.
func matchPattern(pattern, path string) (map[string]string, bool) {
	params := make(map[string]string)

	var i, j int
	for {
		pseg, _ := nextSegment(pattern, &i)
		sseg, sstart := nextSegment(path, &j)

		pEnd := pseg == "" && i >= len(pattern)
		sEnd := sseg == "" && j >= len(path)

		if pEnd && sEnd {
			return params, true
		}
		if pseg == "" && !pEnd {
			return nil, false
		}

		if !pEnd && pseg[0] == '*' {
			rest := ""
			if sseg != "" {
				rest = path[sstart:]
			}
			params[pseg[1:]] = rest
			return params, true
		}

		if sEnd && !pEnd {
			return nil, false
		}

		if pseg != "" && pseg[0] == ':' {
			params[pseg[1:]] = sseg
		} else if pseg != sseg {
			return nil, false
		}
	}
}

// nextSegment yields the segment starting at *pos, skipping at most
// one leading slash, and reports the byte offset where the segment
// begins. *pos advances to the terminating slash or end of string.
func nextSegment(s string, pos *int) (string, int) {
	if *pos >= len(s) {
		return "", *pos
	}
	if s[*pos] == '/' {
		*pos++
	}
	if *pos >= len(s) {
		return "", *pos
	}
	start := *pos
	end := strings.IndexByte(s[start:], '/')
	if end < 0 {
		end = len(s)
	} else {
		end += start
	}
	*pos = end
	return s[start:end], start
}
