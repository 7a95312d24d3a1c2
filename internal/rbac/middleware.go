package rbac

import (
	"log/slog"
	"net/http"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Middleware wires role checks for HTTP handlers. The actor is placed in the
// request context by the authentication middleware.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current actor holds at least one of roles. With no
// roles it only requires an authenticated actor.
func (m Middleware) RequireAny(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[actor.Role]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied", slog.String("actor", actor.ID.String()), slog.String("role", string(actor.Role)), slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "role not permitted")
		})
	}
}

// RequireAdmin is shorthand for RequireAny(shared.RoleAdmin).
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.RequireAny(shared.RoleAdmin)
}

// Actor returns the authenticated actor. Handlers mounted behind RequireAny
// can rely on it being present.
func Actor(r *http.Request) shared.Actor {
	actor, _ := shared.ActorFromContext(r.Context())
	return actor
}
