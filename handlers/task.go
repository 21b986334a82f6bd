package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"calendai/ai-calendar/calendar"
	"calendai/ai-calendar/types"
)

type tasksResponse struct {
	Success bool               `json:"success"`
	Filter  calendar.Filter    `json:"filter"`
	Tasks   []calendar.TaskRow `json:"tasks"`
}

type datesResponse struct {
	Success bool                           `json:"success"`
	Days    []string                       `json:"days"`
	Events  map[string][]calendar.DayEntry `json:"events"`
}

// GetEventsHandler lists the caller's events in start order.
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	events, err := h.store.ListEvents(r.Context(), claims.UserID())
	if err != nil {
		h.fail(w, err, "Failed to fetch events", claims)
		return
	}
	if events == nil {
		events = []types.CalendarEvent{}
	}

	writeJSON(w, http.StatusOK, types.GetEventsResponse{
		Success: true,
		Events:  events,
	})
}

// GetTasksHandler serves the task list: ?filter=all|upcoming|today|week|past&search=
func (h *Handler) GetTasksHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	filter, err := calendar.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.store.ListEvents(r.Context(), claims.UserID())
	if err != nil {
		h.fail(w, err, "Failed to fetch tasks", claims)
		return
	}

	rows := calendar.Tasks(events, calendar.TaskQuery{
		Filter: filter,
		Search: r.URL.Query().Get("search"),
		Today:  h.now().In(h.loc),
	})
	if rows == nil {
		rows = []calendar.TaskRow{}
	}

	writeJSON(w, http.StatusOK, tasksResponse{Success: true, Filter: filter, Tasks: rows})
}

// CalendarDatesHandler returns the days covered by events, optionally limited
// to ?month=YYYY-MM.
func (h *Handler) CalendarDatesHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			writeError(w, "Invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
	}

	events, err := h.store.ListEvents(r.Context(), claims.UserID())
	if err != nil {
		h.fail(w, err, "Failed to fetch events", claims)
		return
	}

	index := calendar.EventDates(events)
	if month != "" {
		for day := range index {
			if !strings.HasPrefix(day, month+"-") {
				delete(index, day)
			}
		}
	}

	days := calendar.HighlightedDays(index)
	if days == nil {
		days = []string{}
	}
	writeJSON(w, http.StatusOK, datesResponse{Success: true, Days: days, Events: index})
}

// ExportICSHandler downloads the caller's events as an iCalendar file.
func (h *Handler) ExportICSHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	events, err := h.store.ListEvents(r.Context(), claims.UserID())
	if err != nil {
		h.fail(w, err, "Failed to fetch events", claims)
		return
	}

	body, err := calendar.ExportICS(claims.Username, events, h.loc, h.now())
	if err != nil {
		h.fail(w, err, "Failed to export calendar", claims)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", claims.Username+".ics"))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, body)
}
