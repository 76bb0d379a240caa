package handlers

import (
	"encoding/json"
	"net/http"

	"WeaveSync/internal/config"
	"WeaveSync/internal/middleware"
	"WeaveSync/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	syncService *service.SyncService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)

	// Handlers
	syncHandler := NewSyncHandler(syncService, logger, config)

	// Admin routes - только при заданном пароле администратора
	if config.AdminEnabled() {
		adminHandler := NewAdminHandler(userService, syncService, logger, config)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.WithAuth(config.AuthSecret))
			r.Post("/login", adminHandler.Login)
			r.Post("/logout", adminHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users", adminHandler.CreateUser)
				r.Get("/users/{name}", adminHandler.GetUser)
				r.Delete("/users/{name}", adminHandler.DeleteUser)
				r.Post("/users/{name}/password", adminHandler.ChangePassword)
				r.Post("/cleanup", adminHandler.Cleanup)
			})
		})
	}

	// Weave protocol: /{version}/{user}/{function}[/{collection}[/{id}]] под префиксом
	r.Handle(config.PathPrefix+"/*", http.HandlerFunc(syncHandler.Serve))

	return &Handler{Router: r}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
