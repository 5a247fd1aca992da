package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/multimodal-agent/server/internal/http/handlers"
	"github.com/multimodal-agent/server/internal/middleware"
)

// Options configures the cross-cutting middleware around the API.
type Options struct {
	Logger      zerolog.Logger
	JWTSecret   string
	CORSOrigins []string
	// Limiter is nil when rate limiting is disabled.
	Limiter middleware.Admitter
	// Country resolves a client IP to an ISO country code. Optional.
	Country middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.Country(opts.Country),
		middleware.Authenticate(opts.JWTSecret),
	)
	if opts.Limiter != nil {
		r.Use(middleware.RateLimit(opts.Limiter, opts.Logger))
	}

	// Health & docs
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Post("/files", app.UploadFile)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", app.CreateJob)
			r.Get("/", app.ListJobs)
			r.Get("/{job_id}", app.GetJob)
		})
	})

	return r
}
