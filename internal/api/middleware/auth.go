package middleware

import (
	"context"
	"net/http"

	"github.com/teranga-events/server/internal/api/problem"
	"github.com/teranga-events/server/internal/auth"
	"github.com/teranga-events/server/internal/domain/policy"
)

type contextKey struct{ name string }

var actorKey = contextKey{"actor"}

// ActorFromContext returns the authenticated actor, or policy.Anonymous
// when the request carried no valid token.
func ActorFromContext(ctx context.Context) policy.Actor {
	if actor, ok := ctx.Value(actorKey).(policy.Actor); ok {
		return actor
	}
	return policy.Anonymous
}

func withActor(r *http.Request, actor policy.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey, actor))
}

// Authenticate resolves the bearer token into an actor when present.
// Requests without a token pass through as anonymous; requests with an
// invalid token are rejected.
func Authenticate(jwtManager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.TokenFromHeader(header)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}
			claims, err := jwtManager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}

			actor := policy.Actor{ID: userID, Authenticated: true, PlatformAdmin: claims.PlatformAdmin}
			next.ServeHTTP(w, withActor(r, actor))
		})
	}
}

// RequireAuth rejects requests whose actor is not authenticated. Must run
// after Authenticate.
func RequireAuth(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ActorFromContext(r.Context()).Authenticated {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
