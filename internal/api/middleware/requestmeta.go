package middleware

import (
	"net/http"

	"github.com/teranga-events/server/internal/audit"
)

// RequestMeta captures the request origin (client IP, user agent) into the
// context so audit entries record where a mutation came from.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithMeta(r.Context(), audit.MetaFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
