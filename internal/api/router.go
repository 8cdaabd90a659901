// Package api assembles the HTTP surface: routing, middleware, handlers.
package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/api/handlers"
	"github.com/teranga-events/server/internal/api/middleware"
	"github.com/teranga-events/server/internal/auth"
	"github.com/teranga-events/server/internal/config"
	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/domain/orgs"
	"github.com/teranga-events/server/internal/domain/tickettypes"
	"github.com/teranga-events/server/internal/domain/users"
	"github.com/teranga-events/server/internal/metrics"
)

// Services carries everything the router needs.
type Services struct {
	Users       *users.Service
	Orgs        *orgs.Service
	Events      *events.Service
	TicketTypes *tickettypes.Service
	JWT         *auth.JWTManager
	DBPing      func(context.Context) error
}

func NewRouter(cfg config.Config, services Services, logger zerolog.Logger) http.Handler {
	env := cfg.Environment

	authHandler := handlers.NewAuthHandler(services.Users, env)
	orgsHandler := handlers.NewOrgsHandler(services.Orgs, env)
	eventsHandler := handlers.NewEventsHandler(services.Events, env)
	ticketTypesHandler := handlers.NewTicketTypesHandler(services.TicketTypes, env)

	requireAuth := middleware.RequireAuth(env)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(services.DBPing))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Register),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Login),
	}))
	mux.Handle("/api/v1/auth/me", methodMux(map[string]http.Handler{
		http.MethodGet: authed(authHandler.Me),
	}))

	mux.Handle("/api/v1/orgs", methodMux(map[string]http.Handler{
		http.MethodGet:  authed(orgsHandler.List),
		http.MethodPost: authed(orgsHandler.Create),
	}))
	mux.Handle("/api/v1/orgs/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:   http.HandlerFunc(orgsHandler.Get),
		http.MethodPatch: authed(orgsHandler.Update),
	}))
	mux.Handle("/api/v1/orgs/{id}/members", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(orgsHandler.ListMembers),
		http.MethodPost: authed(orgsHandler.AddMember),
	}))
	mux.Handle("/api/v1/orgs/{id}/members/{userID}", methodMux(map[string]http.Handler{
		http.MethodPatch:  authed(orgsHandler.UpdateMemberRole),
		http.MethodDelete: authed(orgsHandler.RemoveMember),
	}))
	mux.Handle("/api/v1/orgs/{id}/events", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(eventsHandler.ListForOrg),
		http.MethodPost: authed(eventsHandler.Create),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.List),
	}))
	mux.Handle("/api/v1/events/slug/{slug}", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.GetBySlug),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(eventsHandler.Get),
		http.MethodPatch:  authed(eventsHandler.Update),
		http.MethodDelete: authed(eventsHandler.Delete),
	}))
	mux.Handle("/api/v1/events/{id}/publish", methodMux(map[string]http.Handler{
		http.MethodPost: authed(eventsHandler.Publish),
	}))
	mux.Handle("/api/v1/events/{id}/cancel", methodMux(map[string]http.Handler{
		http.MethodPost: authed(eventsHandler.Cancel),
	}))

	mux.Handle("/api/v1/events/{eventID}/ticket-types", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(ticketTypesHandler.List),
		http.MethodPost: authed(ticketTypesHandler.Create),
	}))
	mux.Handle("/api/v1/events/{eventID}/ticket-types/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:   http.HandlerFunc(ticketTypesHandler.Get),
		http.MethodPatch: authed(ticketTypesHandler.Update),
	}))
	mux.Handle("/api/v1/events/{eventID}/ticket-types/{id}/archive", methodMux(map[string]http.Handler{
		http.MethodPost: authed(ticketTypesHandler.Archive),
	}))

	var handler http.Handler = mux
	handler = middleware.Authenticate(services.JWT, env)(handler)
	handler = middleware.RequestMeta(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
