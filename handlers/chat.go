package handlers

import (
	"net/http"

	"calendai/ai-calendar/auth"
	"calendai/ai-calendar/chat"
	"calendai/ai-calendar/config"
	"calendai/ai-calendar/types"

	"github.com/sirupsen/logrus"
)

// ChatHandler runs one conversational turn.
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	var req types.ChatRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	conv, err := h.registry.Open(r.Context(), claims.UserID(), req.ConversationID)
	if err != nil {
		h.fail(w, err, "Could not open conversation", claims)
		return
	}

	reply, err := conv.Send(r.Context(), req.Message)
	if err != nil {
		h.fail(w, err, "Could not process message", claims)
		return
	}

	writeJSON(w, http.StatusOK, types.ChatResponse{
		Success:        true,
		ConversationID: conv.ID,
		UserMessage:    req.Message,
		AIResponse:     reply.Text,
		Proposal:       reply.Proposal,
		ToolPolicy:     reply.Policy.String(),
	})
}

// GetMessagesHandler returns the stored transcript and any pending proposal.
func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	convID, err := conversationParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := h.registry.Open(r.Context(), claims.UserID(), convID)
	if err != nil {
		h.fail(w, err, "Could not open conversation", claims)
		return
	}

	messages, err := h.store.GetMessagesForChat(r.Context(), conv.ID)
	if err != nil {
		h.fail(w, err, "Could not fetch messages", claims)
		return
	}
	if messages == nil {
		messages = []types.Message{}
	}

	resp := types.GetMessagesResponse{
		Success:  true,
		Messages: messages,
		Pending:  conv.Lifecycle().Pending(),
	}
	if chat.ProposalLapsed(messages, resp.Pending) {
		resp.Notice = config.ProposalLapsedText
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConfirmHandler stores the pending proposal, applying any edited fields.
func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	var req types.ConfirmRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	conv, err := h.registry.Open(r.Context(), claims.UserID(), req.ConversationID)
	if err != nil {
		h.fail(w, err, "Could not open conversation", claims)
		return
	}

	outcome, err := conv.Confirm(r.Context(), req.Event)
	if err != nil {
		h.fail(w, err, "Could not add event", claims)
		return
	}

	event := outcome.Event
	event.ID = outcome.EventID
	writeJSON(w, http.StatusOK, types.ChatResponse{
		Success:        true,
		ConversationID: conv.ID,
		AIResponse:     outcome.Text,
		Event:          &event,
		AlreadyExists:  outcome.AlreadyExists,
	})
}

// CancelHandler drops the pending proposal.
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	var req types.ConfirmRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	conv, err := h.registry.Open(r.Context(), claims.UserID(), req.ConversationID)
	if err != nil {
		h.fail(w, err, "Could not open conversation", claims)
		return
	}

	if err := conv.Cancel(r.Context()); err != nil {
		h.fail(w, err, "Could not cancel proposal", claims)
		return
	}

	writeJSON(w, http.StatusOK, types.ChatResponse{
		Success:        true,
		ConversationID: conv.ID,
		AIResponse:     config.ProposalCancelText,
	})
}

// fail logs unexpected errors and writes the mapped status.
func (h *Handler) fail(w http.ResponseWriter, err error, fallback string, claims *auth.Claims) {
	status := statusFor(err)
	entry := h.log.WithFields(logrus.Fields{"user_id": claims.UserID(), "status": status})
	if status == http.StatusInternalServerError {
		entry.Error(fallback+": ", err)
	} else {
		entry.Debug(fallback+": ", err)
	}
	writeError(w, publicMessage(err, fallback), status)
}
