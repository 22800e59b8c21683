package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/auth"
	"github.com/clinsim/clinsim/internal/guard"
	"github.com/clinsim/clinsim/internal/observability"
	"github.com/clinsim/clinsim/internal/policy"
	"github.com/clinsim/clinsim/internal/principal"
	"github.com/clinsim/clinsim/internal/ratelimit"
	"github.com/clinsim/clinsim/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Guard        guard.Guard
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	AuditHandler *audit.Handler
	Limiter      *ratelimit.Limiter
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router with clinsim defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", params.AuthHandler.MountRoutes)

		api.Group(func(protected chi.Router) {
			protected.Use(params.Guard.Authenticate)
			if params.Limiter != nil {
				protected.Use(params.Limiter.Middleware(ratelimit.KeyBySubject))
			}

			protected.With(params.Guard.Protect(guard.Spec{
				Resource: policy.ResourceUsers,
				Action:   policy.ActionRead,
				Extract:  []guard.Extractor{guard.TargetSubject("userID")},
			})).Get("/users/{userID}", params.UsersHandler.GetProfile)

			protected.Route("/audit", func(adminOnly chi.Router) {
				adminOnly.Use(params.Guard.AnyRole(principal.RoleAdmin))
				params.AuditHandler.MountRoutes(adminOnly)
			})
		})
	})

	return r
}
