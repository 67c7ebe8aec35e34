package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voip-routing/internal/config"
	"voip-routing/internal/routing"
)

// Resolver is the routing engine as seen by the handlers.
type Resolver interface {
	ResolveDialplan(ctx context.Context, req routing.Request) routing.DialplanAnswer
	ResolveDirectory(ctx context.Context, req routing.Request) routing.DirectoryAnswer
}

// Pinger reports backend liveness. A nil Pinger is always healthy.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(cfg *config.Config, resolver Resolver, pinger Pinger, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoverMiddleware(logger))
	r.Use(MetricsMiddleware)

	r.Get("/health", HealthHandler(pinger))
	r.Get("/version", VersionHandler())
	r.Handle("/metrics", promhttp.Handler())

	// XML_CURL endpoints
	r.Route("/fs/xml", func(fs chi.Router) {
		if cfg.XMLCurlUser != "" {
			fs.Use(XMLCurlBasicAuth(cfg))
		}

		fetch := FSXMLHandler(cfg, resolver, "", logger)
		fs.Get("/", fetch)
		fs.Post("/", fetch)

		directory := FSXMLHandler(cfg, resolver, routing.SectionDirectory, logger)
		fs.Get("/directory", directory)
		fs.Post("/directory", directory)

		dialplan := FSXMLHandler(cfg, resolver, routing.SectionDialplan, logger)
		fs.Get("/dialplan", dialplan)
		fs.Post("/dialplan", dialplan)
	})

	return r
}
