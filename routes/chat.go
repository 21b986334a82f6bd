package routes

import (
	"net/http"

	"calendai/ai-calendar/handlers"
)

// RegisterChatRoutes registers all chat-related routes
func RegisterChatRoutes(mux *http.ServeMux, h *handlers.Handler, protect func(http.Handler) http.Handler) {
	mux.Handle("POST /chat", protect(http.HandlerFunc(h.ChatHandler)))
	mux.Handle("GET /chat", protect(http.HandlerFunc(h.GetMessagesHandler)))
	mux.Handle("POST /chat/confirm", protect(http.HandlerFunc(h.ConfirmHandler)))
	mux.Handle("POST /chat/cancel", protect(http.HandlerFunc(h.CancelHandler)))
}
