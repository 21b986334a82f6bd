// Package handlers serves the chat, calendar and account endpoints.
package handlers

import (
	"net/http"
	"time"

	"calendai/ai-calendar/auth"
	"calendai/ai-calendar/chat"
	"calendai/ai-calendar/config"
	"calendai/ai-calendar/store"

	"github.com/sirupsen/logrus"
)

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	registry *chat.Registry
	store    store.Store
	issuer   *auth.Issuer
	loc      *time.Location
	now      func() time.Time
	log      logrus.FieldLogger
}

func New(registry *chat.Registry, st store.Store, issuer *auth.Issuer, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		registry: registry,
		store:    st,
		issuer:   issuer,
		loc:      loc,
		now:      time.Now,
		log:      config.Logger.WithField("component", "http"),
	}
}

// userFrom returns the authenticated caller. Routes behind AuthMiddleware
// always have claims; the 401 covers miswired routes.
func (h *Handler) userFrom(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"conversations": h.registry.Len(),
		"time":          h.now().In(h.loc).Format(time.RFC3339),
	})
}
