package xhttp

import (
	"encoding/json"

	"github.com/fasthttp/router"
)

type Router = router.Router

func NewRouter() *Router {
	r := router.New()
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = methodNotAllowedHandler
	return r
}

// CreateDefaultRouter additionally redirects unclean and trailing-slash
// paths and records the matched route for request logs.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

// NotFoundHandler answers with the same {"error": ...} body the API
// handlers use.
func NotFoundHandler(ctx *RequestCtx) {
	writeErrorJSON(ctx, StatusNotFound, "route "+string(ctx.Path())+" not found")
}

func methodNotAllowedHandler(ctx *RequestCtx) {
	writeErrorJSON(ctx, StatusMethodNotAllowed, "method "+string(ctx.Method())+" not allowed on "+string(ctx.Path()))
}

func writeErrorJSON(ctx *RequestCtx, status int, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
