// Package store defines the persistence boundary shared by the sqlite and
// supabase backends.
package store

import (
	"context"
	"errors"
	"strings"

	"calendai/ai-calendar/types"
)

// AllUsers lists events of every user when passed to ListEvents.
const AllUsers int64 = 0

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateUser = errors.New("username or email already registered")
)

// MessageStore persists conversation turns and their handled flags.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg types.NewMessage) (int64, error)
	GetMessagesForChat(ctx context.Context, conversationID int64) ([]types.Message, error)
	MarkMessageHandled(ctx context.Context, messageID int64) error
	// MarkLastUnhandledUserMessageHandled flags the newest unhandled user
	// message and returns its id; ok is false when no such row exists.
	MarkLastUnhandledUserMessageHandled(ctx context.Context, conversationID int64) (id int64, ok bool, err error)
}

// CalendarStore persists confirmed events.
type CalendarStore interface {
	EventExists(ctx context.Context, key types.EventKey) (bool, error)
	// AddEvent inserts the event, or updates description and location of the
	// row sharing its uniqueness tuple.
	AddEvent(ctx context.Context, event types.CalendarEvent) (int64, error)
	// ListEvents returns the events of userID, or of everyone for AllUsers.
	ListEvents(ctx context.Context, userID int64) ([]types.CalendarEvent, error)
}

type UserStore interface {
	AddUser(ctx context.Context, user types.User) (int64, error)
	GetUser(ctx context.Context, username string) (types.User, error)
	GetUserByID(ctx context.Context, id int64) (types.User, error)
}

// EventStore is everything the chat core consumes.
type EventStore interface {
	MessageStore
	CalendarStore
}

// Store is a full backend.
type Store interface {
	EventStore
	UserStore
	Close() error
}

// StoredText keeps the NOT NULL message column meaningful.
func StoredText(text string) string {
	if strings.TrimSpace(text) == "" {
		return types.NoTextContent
	}
	return text
}
