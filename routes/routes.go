package routes

import (
	"net/http"

	"calendai/ai-calendar/auth"
	"calendai/ai-calendar/handlers"
	"calendai/ai-calendar/middleware"
)

// RegisterAllRoutes registers all application routes
func RegisterAllRoutes(mux *http.ServeMux, h *handlers.Handler, issuer *auth.Issuer) {
	protect := middleware.AuthMiddleware(issuer)

	RegisterAccountRoutes(mux, h)
	RegisterChatRoutes(mux, h, protect)
	RegisterTaskRoutes(mux, h, protect)
}

// NewRouter builds the mux with the shared middleware applied.
func NewRouter(h *handlers.Handler, issuer *auth.Issuer) http.Handler {
	mux := http.NewServeMux()
	RegisterAllRoutes(mux, h, issuer)
	return middleware.Chain(
		middleware.LoggingMiddleware,
		middleware.CORSMiddleware,
	)(mux)
}

// RegisterAccountRoutes registers the unauthenticated endpoints
func RegisterAccountRoutes(mux *http.ServeMux, h *handlers.Handler) {
	mux.HandleFunc("POST /login", h.LoginHandler)
	mux.HandleFunc("POST /register", h.RegisterHandler)
	mux.HandleFunc("GET /health", h.HealthHandler)
}
