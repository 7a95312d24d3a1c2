package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// ActorResolver turns a bearer token into an actor.
type ActorResolver interface {
	Resolve(ctx context.Context, raw string) (shared.Actor, error)
}

// Middleware places the actor of a valid bearer token in the request context.
// Requests without a token pass through anonymously and are stopped by the
// rbac guards; a present but invalid token is rejected here.
func Middleware(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.Debug("bearer rejected", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}
