package guard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/policy"
	"github.com/clinsim/clinsim/internal/principal"
	"github.com/clinsim/clinsim/internal/shared"
)

// Spec declares what a route requires: the resource/action pair to authorize
// and the extractors that build the decision context from the request.
type Spec struct {
	Resource policy.Resource
	Action   policy.Action
	Extract  []Extractor
}

// Guard wires the resolver and evaluator into chi middleware. Authentication
// failures answer 401, authorization denials 403; the two stay distinguishable
// to clients and in audit records.
type Guard struct {
	Resolver  *principal.Resolver
	Evaluator *policy.Evaluator
	Logger    *slog.Logger
}

// Authenticate resolves the bearer credential and attaches the subject to the
// request context. Requests without a valid credential stop here with 401.
func (g Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.ContextWithOrigin(r.Context(), originOf(r))
		subject, err := g.Resolver.Resolve(ctx, r.Header.Get("Authorization"))
		if err != nil {
			var authErr *principal.AuthError
			if errors.As(err, &authErr) {
				shared.WriteError(w, http.StatusUnauthorized, authErr.Message())
				return
			}
			if g.Logger != nil {
				g.Logger.Error("resolve principal", slog.Any("error", err))
			}
			shared.WriteError(w, http.StatusInternalServerError, "authentication unavailable")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(ctx, subject)))
	})
}

// AuthenticateOptional resolves when possible and otherwise attaches the
// anonymous subject; the pipeline always continues.
func (g Guard) AuthenticateOptional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.ContextWithOrigin(r.Context(), originOf(r))
		subject := g.Resolver.ResolveOptional(ctx, r.Header.Get("Authorization"))
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(ctx, subject)))
	})
}

// Protect returns middleware enforcing the declarative guard spec. It
// requires a previously resolved subject, builds the decision context and
// asks the evaluator.
func (g Guard) Protect(spec Spec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := g.requireSubject(w, r)
			if !ok {
				return
			}
			var dc policy.Context
			for _, extract := range spec.Extract {
				extract(r, &dc)
			}
			allowed, err := g.Evaluator.Authorize(r.Context(), subject, spec.Resource, spec.Action, dc)
			if err != nil {
				if g.Logger != nil {
					g.Logger.Error("authorize", slog.Any("error", err),
						slog.String("resource", string(spec.Resource)),
						slog.String("action", string(spec.Action)))
				}
				shared.WriteError(w, http.StatusInternalServerError, "authorization unavailable")
				return
			}
			if !allowed {
				shared.WriteError(w, http.StatusForbidden, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AnyRole passes subjects holding at least one of the listed roles.
func (g Guard) AnyRole(roles ...principal.Role) func(http.Handler) http.Handler {
	return g.roleCheck(func(r *http.Request, sub principal.Subject) bool {
		return g.Evaluator.AuthorizeAnyRole(r.Context(), sub, roles...)
	})
}

// AllRoles passes subjects holding every listed role.
func (g Guard) AllRoles(roles ...principal.Role) func(http.Handler) http.Handler {
	return g.roleCheck(func(r *http.Request, sub principal.Subject) bool {
		return g.Evaluator.AuthorizeAllRoles(r.Context(), sub, roles...)
	})
}

// OwnData passes when the named request field equals the subject's own id.
// Admin bypasses through its unconditional grants, so routes combine this
// with Protect where needed; on its own it is a strict ownership check.
func (g Guard) OwnData(field string) func(http.Handler) http.Handler {
	return g.predicateCheck("own-data", policy.Ownership(), TargetSubject(field))
}

// SameDiscipline passes when the named request field matches the subject's
// discipline.
func (g Guard) SameDiscipline(field string) func(http.Handler) http.Handler {
	return g.predicateCheck("same-discipline", policy.SameDiscipline(), TargetDiscipline(field))
}

func (g Guard) roleCheck(decide func(*http.Request, principal.Subject) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := g.requireSubject(w, r)
			if !ok {
				return
			}
			if !decide(r, subject) {
				shared.WriteError(w, http.StatusForbidden, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g Guard) predicateCheck(label string, pred policy.Predicate, extractors ...Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := g.requireSubject(w, r)
			if !ok {
				return
			}
			var dc policy.Context
			for _, extract := range extractors {
				extract(r, &dc)
			}
			if !g.Evaluator.AuthorizePredicate(r.Context(), subject, label, pred, dc) {
				shared.WriteError(w, http.StatusForbidden, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireSubject enforces the authentication precondition shared by every
// guard: a resolved, non-anonymous subject on the context.
func (g Guard) requireSubject(w http.ResponseWriter, r *http.Request) (principal.Subject, bool) {
	subject, ok := SubjectFromContext(r.Context())
	if !ok || subject.IsAnonymous() {
		shared.WriteError(w, http.StatusUnauthorized, "authentication required")
		return principal.Subject{}, false
	}
	return subject, true
}

func originOf(r *http.Request) audit.Origin {
	return audit.Origin{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
	}
}
