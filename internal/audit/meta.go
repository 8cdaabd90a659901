package audit

import (
	"context"
	"net/http"
	"strings"
)

// Meta is the request origin captured for audit entries.
type Meta struct {
	IP        string
	UserAgent string
}

type contextKey string

const metaKey contextKey = "auditMeta"

// WithMeta stores request origin in the context.
func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey, meta)
}

// MetaFromContext retrieves the request origin, if any.
func MetaFromContext(ctx context.Context) (Meta, bool) {
	meta, ok := ctx.Value(metaKey).(Meta)
	return meta, ok
}

// MetaFromRequest extracts client IP and user agent from an HTTP request.
// Proxy headers win over RemoteAddr; X-Forwarded-For may carry several IPs,
// the first is the client.
func MetaFromRequest(r *http.Request) Meta {
	meta := Meta{UserAgent: r.UserAgent()}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			meta.IP = strings.TrimSpace(xff[:idx])
		} else {
			meta.IP = strings.TrimSpace(xff)
		}
		return meta
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		meta.IP = strings.TrimSpace(xri)
		return meta
	}

	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	meta.IP = host
	return meta
}
