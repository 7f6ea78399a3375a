package server

import (
	"fmt"
	"net/http"
)

// CallbackRouter routes the handful of paths the login flow serves. It wraps
// an [http.ServeMux] and threads the middleware chain around every handler
// it registers.
type CallbackRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewCallbackRouter creates an empty router.
func NewCallbackRouter() *CallbackRouter {
	return &CallbackRouter{mux: http.NewServeMux()}
}

// Use appends middleware to the chain. Only handlers registered afterwards
// are wrapped; the first middleware added ends up outermost.
func (r *CallbackRouter) Use(mw ...Middleware) {
	r.chain = append(r.chain, mw...)
}

// Handle registers handler for the given method and path. Method matching is
// delegated to the mux's "METHOD /path" patterns, so mismatches get the
// standard 405 response.
func (r *CallbackRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(fmt.Sprintf("%s %s", method, path), r.wrap(handler))
}

// Handler registers handler on every route it claims via [Handler.Routes].
func (r *CallbackRouter) Handler(handler Handler) {
	wrapped := r.wrap(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the whole route table.
func (r *CallbackRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *CallbackRouter) wrap(handler http.Handler) http.Handler {
	for i := len(r.chain) - 1; i >= 0; i-- {
		handler = r.chain[i](handler)
	}
	return handler
}
