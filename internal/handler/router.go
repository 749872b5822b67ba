package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
	"github.com/gbp-optimizer/leadgen-api/internal/token"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs.
type Deps struct {
	Auth        *service.AuthService
	Credentials *service.CredentialService
	Scanner     *service.ScannerService
	Reports     *service.ReportService
	Leads       *service.LeadService
	Templates   *service.TemplateService
	Codec       *token.Codec
	Events      port.Subscriber
	Metrics     *observability.Metrics
	Readiness   func() error
	Origins     []string
	Logger      *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Embed-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(d.Readiness))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Auth
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", loginHandler(d.Auth, d.Logger))
			r.Get("/session", sessionHandler(d.Auth))
			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(d.Auth, d.Logger))
				r.Post("/logout", logoutHandler(d.Auth, d.Credentials))
			})
		})

		// =============================================
		// Scan + report: reachable with a JWT or an
		// embed token.
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(EmbedTokenMiddleware(d.Codec, d.Logger))
			r.Use(jwtFallbackMiddleware(d.Auth, d.Logger))
			r.Use(RequireAgency)

			r.Post("/businesses/search", searchHandler(d.Scanner, d.Logger))
			r.Get("/businesses/{placeId}", getBusinessHandler(d.Scanner, d.Logger))
			r.Post("/reports", reportHandler(d.Scanner, d.Reports, d.Credentials, d.Leads, d.Logger))
			r.Post("/leads", captureLeadHandler(d.Leads, d.Logger))
		})

		// =============================================
		// Dashboard (JWT only)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))

			r.Get("/leads", listLeadsHandler(d.Leads, d.Logger))
			r.Get("/leads/export", exportLeadsHandler(d.Leads, d.Logger))
			r.Get("/leads/events", leadEventsHandler(d.Events, d.Logger))
			r.Get("/leads/{leadId}", getLeadHandler(d.Leads, d.Logger))
			r.Delete("/leads/{leadId}", deleteLeadHandler(d.Leads, d.Logger))

			r.Get("/settings/api-keys", getCredentialsHandler(d.Credentials, d.Logger))
			r.Put("/settings/api-keys", updateCredentialsHandler(d.Credentials, d.Logger))

			r.Post("/embed/token", embedTokenHandler(d.Codec, d.Credentials, d.Logger))

			r.Get("/email-templates", listTemplatesHandler(d.Templates, d.Logger))
			r.Post("/email-templates", createTemplateHandler(d.Templates, d.Logger))
			r.Get("/email-templates/{templateId}", getTemplateHandler(d.Templates, d.Logger))
			r.Put("/email-templates/{templateId}", updateTemplateHandler(d.Templates, d.Logger))
			r.Delete("/email-templates/{templateId}", deleteTemplateHandler(d.Templates, d.Logger))

			r.Post("/emails/send", sendEmailHandler(d.Leads, d.Logger))

			r.Get("/dashboard/stats", dashboardStatsHandler(d.Leads, d.Logger))
		})
	})

	return r
}

// jwtFallbackMiddleware applies JWT auth only when the embed-token
// middleware did not already resolve an agency.
func jwtFallbackMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	jwtAuth := JWTAuthMiddleware(authSvc, logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AgencyIDFromContext(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			jwtAuth(next).ServeHTTP(w, r)
		})
	}
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
