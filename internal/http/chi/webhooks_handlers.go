package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/sumit-gateway/metrics"
	"github.com/marcelsud/sumit-gateway/routes"
	"github.com/marcelsud/sumit-gateway/sumit"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/rs/zerolog"
)

// CredentialChecker verifies gateway credentials
type CredentialChecker interface {
	CheckCredentials(ctx context.Context) error
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

type server struct {
	webhooks  webhook.UseCase
	routes    *routes.Loader
	gateway   CredentialChecker
	collector metrics.Collector
	metrics   http.Handler
	health    HealthCheck
	locale    string
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures optional collaborators of the API
type Option func(*server)

func WithGateway(c CredentialChecker) Option {
	return func(s *server) { s.gateway = c }
}

func WithCollector(c metrics.Collector) Option {
	return func(s *server) { s.collector = c }
}

// WithMetricsHandler mounts a Prometheus handler on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *server) { s.metrics = h }
}

func WithHealthCheck(fn HealthCheck) Option {
	return func(s *server) { s.health = fn }
}

// WithLocale sets the locale used when Accept-Language matches nothing
func WithLocale(locale string) Option {
	return func(s *server) { s.locale = locale }
}

// WebhookHandlers sets up the operations API routes
func WebhookHandlers(ctx context.Context, webhookService webhook.UseCase, routeLoader *routes.Loader, opts ...Option) *chi.Mux {
	logger := httplog.NewLogger("sumit-gateway", httplog.Options{
		JSON: true,
	})

	s := &server{
		webhooks: webhookService,
		routes:   routeLoader,
		locale:   sumit.DefaultLocale,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.negotiateLocale)

	r.Get("/health", s.getHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/routes", getRoutes(routeLoader).ServeHTTP)
		r.Get("/endpoints", getEndpoints(routeLoader).ServeHTTP)

		r.Post("/events", s.postEvent)
		r.Get("/events/{id}", s.getEvent)
		r.Post("/events/{id}/retry", s.retryEvent)
		r.Post("/sweep", s.postSweep)

		r.Get("/metrics", s.getMetrics)
		r.Get("/gateway/credentials", s.checkCredentials)
	})

	return r
}

// negotiateLocale maps Accept-Language onto the gateway call locale
func (s *server) negotiateLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := sumit.MatchLocale(r.Header.Get("Accept-Language"), s.locale)
		next.ServeHTTP(w, r.WithContext(sumit.WithLocale(r.Context(), locale)))
	})
}
