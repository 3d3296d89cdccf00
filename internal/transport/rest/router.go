package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/ai-helper/internal/auth"
	"github.com/frahmantamala/ai-helper/internal/chat"
	"github.com/frahmantamala/ai-helper/internal/transport/middleware"
	"github.com/frahmantamala/ai-helper/internal/transport/swagger"
	"github.com/frahmantamala/ai-helper/internal/user"
)

type Dependencies struct {
	DB             Pinger
	AuthHandler    *auth.Handler
	RBAC           *auth.RBACAuthorization
	UserHandler    *user.Handler
	ChatHandler    *chat.Handler
	AllowedOrigins []string
	MetricsEnabled bool
	MetricsPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	healthHandler := NewHealthHandler(deps.DB)
	rbac := deps.RBAC

	// Apply global middleware
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	if deps.MetricsEnabled {
		router.Use(middleware.Metrics)

		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.Handler())
	}

	// Serve the OpenAPI document at root (outside API prefix)
	router.Get(swagger.SpecPath, swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		r.Get("/ping", healthHandler.Ping)

		if deps.AuthHandler == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", deps.AuthHandler.Login)
			sr.Get("/check", deps.AuthHandler.Check)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(deps.AuthHandler.AuthMiddleware)
			pr.Use(middleware.UserContext)

			if deps.UserHandler != nil {
				pr.With(rbac.Middleware(auth.PermProfileRead)).Get("/users/me", deps.UserHandler.GetCurrentUser)

				pr.Route("/admin/users", func(ar chi.Router) {
					ar.Group(func(rr chi.Router) {
						rr.Use(rbac.Middleware(auth.PermUsersRead))
						rr.Get("/", deps.UserHandler.ListUsers)
						rr.Get("/check-username", deps.UserHandler.CheckUsername)
						rr.Get("/check-email", deps.UserHandler.CheckEmail)
						rr.Get("/{id}", deps.UserHandler.GetUser)
					})

					ar.Group(func(wr chi.Router) {
						wr.Use(rbac.Middleware(auth.PermUsersWrite))
						wr.Post("/", deps.UserHandler.CreateUser)
						wr.Put("/{id}", deps.UserHandler.UpdateUser)
						wr.Put("/{id}/password", deps.UserHandler.ChangePassword)
						wr.Delete("/{id}", deps.UserHandler.DeleteUser)
					})
				})
			}

			if deps.ChatHandler != nil {
				pr.Route("/chat", func(cr chi.Router) {
					cr.Use(rbac.Middleware(auth.PermChatUse))
					cr.Post("/completions", deps.ChatHandler.Completions)
					cr.Get("/stream-url", deps.ChatHandler.StreamURL)
				})
			}
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"NOT_FOUND","code":"ROUTE_NOT_FOUND","message":"Route not found"}}`))
	})
}
