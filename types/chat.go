package types

import (
	"encoding/json"
	"time"
)

// NoTextContent marks a turn that carried no usable text. It is stored
// but never forwarded to the completion service.
const NoTextContent = "[no text content]"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Valid reports whether s is one of the senders the messages table accepts.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderAssistant, SenderSystem:
		return true
	}
	return false
}

// Message is a persisted chat turn. IDs increase strictly within a
// conversation and give the chronological order.
type Message struct {
	ID             int64           `json:"id"`
	ConversationID int64           `json:"conversation_id"`
	UserID         *int64          `json:"user_id,omitempty"`
	Sender         Sender          `json:"sender"`
	Text           string          `json:"message"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Handled        bool            `json:"handled"`
}

// NewMessage is the input of a message insert.
type NewMessage struct {
	ConversationID int64
	UserID         *int64
	Sender         Sender
	Text           string
	Metadata       any
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

type ConfirmRequest struct {
	ConversationID int64          `json:"conversation_id,omitempty"`
	Event          *EventProposal `json:"event,omitempty"` // edited fields, optional
}

type ChatResponse struct {
	Success        bool           `json:"success"`
	ConversationID int64          `json:"conversation_id,omitempty"`
	UserMessage    string         `json:"user_message,omitempty"`
	AIResponse     string         `json:"ai_response,omitempty"`
	Proposal       *EventProposal `json:"proposal,omitempty"`
	Event          *CalendarEvent `json:"event,omitempty"`
	AlreadyExists  bool           `json:"already_exists,omitempty"`
	ToolPolicy     string         `json:"tool_policy,omitempty"`
	ErrorMessage   string         `json:"error,omitempty"` // only set on failure
}

type GetMessagesResponse struct {
	Success  bool           `json:"success"`
	Messages []Message      `json:"messages"`
	Pending  *EventProposal `json:"pending,omitempty"`
	Notice   string         `json:"notice,omitempty"`
}

// ContentText exposes the stored text to transcript consumers.
func (m Message) ContentText() string {
	return m.Text
}
