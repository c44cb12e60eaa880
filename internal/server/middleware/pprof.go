package middleware

import (
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"
)

// Pprof mounts the runtime profiles under /debug/pprof of g. The group is
// expected to be guarded by AdminOnly.
func Pprof(g *echo.Group) {
	g.GET("/debug/pprof/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	for _, name := range []string{"heap", "goroutine", "block", "mutex", "allocs", "threadcreate"} {
		g.GET("/debug/pprof/"+name, echo.WrapHandler(pprof.Handler(name)))
	}
	g.GET("/debug/pprof/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	g.GET("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	g.GET("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	g.GET("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
}
