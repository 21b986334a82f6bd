package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"calendai/ai-calendar/auth"
	"calendai/ai-calendar/chat"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, message string, status int) {
	resp := types.ChatResponse{
		Success:      false,
		ErrorMessage: message,
	}
	writeJSON(w, status, resp)

}

// decodeBody reads a JSON body into v. An empty body is accepted when
// optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrInvalidProposal):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrForeignConversation):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrTurnInFlight),
		errors.Is(err, chat.ErrNoPendingProposal),
		errors.Is(err, chat.ErrProposalPending),
		errors.Is(err, store.ErrDuplicateUser):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// publicMessage hides internal failures behind a generic text.
func publicMessage(err error, fallback string) string {
	if statusFor(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

// conversationParam reads ?conversation_id=, 0 when absent.
func conversationParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid conversation_id")
	}
	return id, nil
}
