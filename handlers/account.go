package handlers

import (
	"errors"
	"net/http"
	"strings"

	"calendai/ai-calendar/auth"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"
)

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, "Missing username or password", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.log.Error("Failed to fetch user: ", err)
		writeError(w, "Could not log in", http.StatusInternalServerError)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.log.WithField("username", req.Username).Warn("Failed login attempt")
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	h.respondWithToken(w, user, http.StatusOK)
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := auth.ValidateRegistration(req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("Failed to hash password: ", err)
		writeError(w, "Could not register user", http.StatusInternalServerError)
		return
	}

	user := types.User{Username: req.Username, PasswordHash: hash, Email: req.Email}
	user.ID, err = h.store.AddUser(r.Context(), user)
	if err != nil {
		if !errors.Is(err, store.ErrDuplicateUser) {
			h.log.Error("Failed to add user: ", err)
		}
		writeError(w, publicMessage(err, "Could not register user"), statusFor(err))
		return
	}

	h.log.WithField("user_id", user.ID).Info("User registered")
	h.respondWithToken(w, user, http.StatusCreated)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, user types.User, status int) {
	token, err := h.issuer.IssueToken(user)
	if err != nil {
		h.log.Error("Failed to issue token: ", err)
		writeError(w, "Could not issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, types.LoginResponse{
		Success: true,
		Token:   token,
		User:    &user,
	})
}
