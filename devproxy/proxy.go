// Package devproxy forwards frontend development traffic to the backend process.
package devproxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Route is one forwarded path prefix and the headers added to requests sent upstream.
type Route struct {
	Prefix  string
	Headers map[string]string
}

// DefaultRoutes are the prefixes served by the backend during development.
var DefaultRoutes = []Route{
	{Prefix: "/api", Headers: map[string]string{"Connection": "keep-alive"}},
	{Prefix: "/auth"},
	{Prefix: "/oauth2"},
}

// New returns an engine forwarding every route prefix to target.
// Requests matching no prefix get 404.
func New(target string, routes []Route, logger *zap.Logger) (*gin.Engine, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse proxy target: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy target %q must be an absolute URL", target)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	for _, rt := range routes {
		h := forward(u, rt, logger)
		prefix := strings.TrimSuffix(rt.Prefix, "/")
		r.Any(prefix, h)
		r.Any(prefix+"/*path", h)
	}
	return r, nil
}

func forward(target *url.URL, rt Route, logger *zap.Logger) gin.HandlerFunc {
	proxy := &httputil.ReverseProxy{
		// Rewrite runs after hop-by-hop headers are stripped, so route headers reach upstream.
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			for k, v := range rt.Headers {
				pr.Out.Header.Set(k, v)
			}
		},
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		logger.Warn("dev proxy upstream failed",
			zap.String("path", req.URL.Path),
			zap.String("target", target.String()),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
	return func(ctx *gin.Context) {
		proxy.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
