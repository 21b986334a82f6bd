package routes

import (
	"net/http"

	"calendai/ai-calendar/handlers"
)

// RegisterTaskRoutes registers the event, task list and calendar routes
func RegisterTaskRoutes(mux *http.ServeMux, h *handlers.Handler, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /events", protect(http.HandlerFunc(h.GetEventsHandler)))
	mux.Handle("GET /events/export.ics", protect(http.HandlerFunc(h.ExportICSHandler)))
	mux.Handle("GET /tasks", protect(http.HandlerFunc(h.GetTasksHandler)))
	mux.Handle("GET /calendar/dates", protect(http.HandlerFunc(h.CalendarDatesHandler)))
}
