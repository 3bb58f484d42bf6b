// Package server assembles the HTTP router.
package server

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/app/handler"
	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/middleware"
)

// Options configures the router.
type Options struct {
	RequestTimeout time.Duration
	// TrustedSubnet guards the metrics endpoint. Nil leaves it open.
	TrustedSubnet *net.IPNet
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func Init(logger *zap.Logger, svc service.URLServiceIface, opts Options) *chi.Mux {
	get := handler.NewGet(svc, logger, opts.RequestTimeout)
	post := handler.NewPost(svc, logger, opts.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithRecovery(logger))

	// Set before mounting so the /api subrouter inherits them.
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.NotFound(handler.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.WithCORS())
		r.Use(middleware.WithGzip)

		r.Get("/hello", get.Hello)
		r.Post("/shorturl", post.Shorten)
		r.Get("/shorturl/{id}", get.ByShort)
	})

	r.Get("/ping", get.PingDB)

	if opts.Metrics != nil {
		r.With(middleware.WithSubnet(opts.TrustedSubnet)).Handle("/metrics", opts.Metrics)
	}

	return r
}
