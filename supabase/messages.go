package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
)

// markAttempts bounds the select-then-update loop in
// MarkLastUnhandledUserMessageHandled when another writer wins the row.
const markAttempts = 3

type messageRow struct {
	ID             int64           `json:"id,omitempty"`
	ConversationID int64           `json:"conversation_id"`
	UserID         *int64          `json:"user_id"`
	Sender         string          `json:"sender"`
	Message        string          `json:"message"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Handled        bool            `json:"handled"`
}

func (r messageRow) toMessage() types.Message {
	msg := types.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		Sender:         types.Sender(r.Sender),
		Text:           r.Message,
		Timestamp:      r.Timestamp,
		Handled:        r.Handled,
	}
	if len(r.Metadata) > 0 && string(r.Metadata) != "null" {
		msg.Metadata = r.Metadata
	}
	return msg
}

func (s *Store) SaveMessage(ctx context.Context, msg types.NewMessage) (int64, error) {
	if !msg.Sender.Valid() {
		return 0, fmt.Errorf("failed to save message: invalid sender %q", msg.Sender)
	}

	row := messageRow{
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		Sender:         string(msg.Sender),
		Message:        store.StoredText(msg.Text),
		Timestamp:      time.Now().UTC(),
	}
	if msg.Metadata != nil {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode message metadata: %w", err)
		}
		row.Metadata = data
	}

	resp, _, err := s.client.From("messages").Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to save message: %w", err)
	}

	var created []messageRow
	if err := decodeRows(resp, &created); err != nil {
		return 0, err
	}
	if len(created) == 0 {
		return 0, fmt.Errorf("failed to save message: no row returned")
	}

	s.log.WithFields(logrus.Fields{
		"conversation_id": msg.ConversationID,
		"message_id":      created[0].ID,
		"sender":          msg.Sender,
	}).Debug("Message saved")
	return created[0].ID, nil
}

func (s *Store) GetMessagesForChat(ctx context.Context, conversationID int64) ([]types.Message, error) {
	resp, _, err := s.client.From("messages").
		Select("id, conversation_id, user_id, sender, message, metadata, timestamp, handled", "", false).
		Eq("conversation_id", itoa(conversationID)).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var rows []messageRow
	if err := decodeRows(resp, &rows); err != nil {
		return nil, err
	}

	messages := make([]types.Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, r.toMessage())
	}
	return messages, nil
}

func (s *Store) MarkMessageHandled(ctx context.Context, messageID int64) error {
	resp, _, err := s.client.From("messages").
		Update(map[string]interface{}{"handled": true}, "representation", "").
		Eq("id", itoa(messageID)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to mark message handled: %w", err)
	}

	var updated []messageRow
	if err := decodeRows(resp, &updated); err != nil {
		return err
	}
	if len(updated) == 0 {
		return fmt.Errorf("failed to mark message %d handled: %w", messageID, store.ErrNotFound)
	}
	return nil
}

// MarkLastUnhandledUserMessageHandled finds the newest unhandled user row and
// flips it with a conditional update; an empty update means another writer
// got there first, so the search is repeated.
func (s *Store) MarkLastUnhandledUserMessageHandled(ctx context.Context, conversationID int64) (int64, bool, error) {
	for attempt := 0; attempt < markAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		resp, _, err := s.client.From("messages").
			Select("id", "", false).
			Eq("conversation_id", itoa(conversationID)).
			Eq("sender", string(types.SenderUser)).
			Eq("handled", "false").
			Order("id", &postgrest.OrderOpts{Ascending: false}).
			Limit(1, "").
			Execute()
		if err != nil {
			return 0, false, fmt.Errorf("failed to find last user message: %w", err)
		}

		var found []messageRow
		if err := decodeRows(resp, &found); err != nil {
			return 0, false, err
		}
		if len(found) == 0 {
			return 0, false, nil
		}

		resp, _, err = s.client.From("messages").
			Update(map[string]interface{}{"handled": true}, "representation", "").
			Eq("id", itoa(found[0].ID)).
			Eq("handled", "false").
			Execute()
		if err != nil {
			return 0, false, fmt.Errorf("failed to mark last user message handled: %w", err)
		}

		var updated []messageRow
		if err := decodeRows(resp, &updated); err != nil {
			return 0, false, err
		}
		if len(updated) > 0 {
			return found[0].ID, true, nil
		}
	}
	return 0, false, nil
}
