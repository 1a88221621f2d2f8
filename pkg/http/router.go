package xhttp

import (
	"path/filepath"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

type Router = router.Router

// Routes is satisfied by both *Router and *router.Group.
type Routes interface {
	GET(path string, handler RequestHandler)
	POST(path string, handler RequestHandler)
	PUT(path string, handler RequestHandler)
	DELETE(path string, handler RequestHandler)
}

// NewRouter returns a new Router
func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a new router with the default middleware
// PanicHandler
// NotFoundHandler
// GlobalOPTIONS
// MethodNotAllowed
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = NotFoundHandler
	r.HandleOPTIONS = true
	r.GlobalOPTIONS = NoContentHandler
	r.HandleMethodNotAllowed = true
	return r
}

// NotFoundHandler is the default 404 handler
func NotFoundHandler(ctx *RequestCtx) {
	ctx.Error(StatusText(StatusNotFound), StatusNotFound)
}

// NoContentHandler answers CORS preflight requests; the headers come from CORSMiddleware.
func NoContentHandler(ctx *RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// MatchedRoute returns the route pattern the router matched, or the raw path.
func MatchedRoute(ctx *RequestCtx) string {
	if v, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && v != "" {
		return v
	}
	return string(ctx.Path())
}

// ServeUI mounts the browser UI: index at "/" and the rest of dir under /static/.
func ServeUI(r *Router, dir string, index string) {
	indexPath := filepath.Join(dir, index)
	r.GET("/", func(ctx *RequestCtx) {
		fasthttp.ServeFile(ctx, indexPath)
	})
	r.ServeFiles("/static/{filepath:*}", dir)
}
