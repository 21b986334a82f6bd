package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/pocketbase/dbx"
	"github.com/sirupsen/logrus"
)

type messageRow struct {
	ID             int64          `db:"id"`
	ConversationID int64          `db:"conversation_id"`
	UserID         sql.NullInt64  `db:"user_id"`
	Sender         string         `db:"sender"`
	Message        string         `db:"message"`
	Metadata       sql.NullString `db:"metadata"`
	Timestamp      time.Time      `db:"timestamp"`
	Handled        bool           `db:"handled"`
}

func (r messageRow) toMessage() types.Message {
	msg := types.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Sender:         types.Sender(r.Sender),
		Text:           r.Message,
		Timestamp:      r.Timestamp,
		Handled:        r.Handled,
	}
	if r.UserID.Valid {
		uid := r.UserID.Int64
		msg.UserID = &uid
	}
	if r.Metadata.Valid && r.Metadata.String != "" {
		msg.Metadata = json.RawMessage(r.Metadata.String)
	}
	return msg
}

func (d *DB) SaveMessage(ctx context.Context, msg types.NewMessage) (int64, error) {
	if !msg.Sender.Valid() {
		return 0, fmt.Errorf("failed to save message: invalid sender %q", msg.Sender)
	}

	metadata, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return 0, err
	}

	var userID any
	if msg.UserID != nil {
		userID = *msg.UserID
	}

	res, err := d.db.Insert("messages", dbx.Params{
		"conversation_id": msg.ConversationID,
		"user_id":         userID,
		"sender":          string(msg.Sender),
		"message":         store.StoredText(msg.Text),
		"metadata":        metadata,
		"timestamp":       time.Now().UTC(),
		"handled":         false,
	}).WithContext(ctx).Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to save message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read message id: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"conversation_id": msg.ConversationID,
		"message_id":      id,
		"sender":          msg.Sender,
	}).Debug("Message saved")
	return id, nil
}

func (d *DB) GetMessagesForChat(ctx context.Context, conversationID int64) ([]types.Message, error) {
	var rows []messageRow
	err := d.db.Select("id", "conversation_id", "user_id", "sender", "message", "metadata", "timestamp", "handled").
		From("messages").
		Where(dbx.HashExp{"conversation_id": conversationID}).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make([]types.Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, r.toMessage())
	}
	return messages, nil
}

func (d *DB) MarkMessageHandled(ctx context.Context, messageID int64) error {
	res, err := d.db.Update("messages", dbx.Params{"handled": true}, dbx.HashExp{"id": messageID}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to mark message handled: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to mark message %d handled: %w", messageID, store.ErrNotFound)
	}
	return nil
}

func (d *DB) MarkLastUnhandledUserMessageHandled(ctx context.Context, conversationID int64) (int64, bool, error) {
	// single statement, so the select and the update cannot interleave with another writer
	q := d.db.NewQuery(`
		UPDATE messages SET handled = 1
		WHERE id = (
			SELECT id FROM messages
			WHERE conversation_id = {:conversation_id} AND sender = 'user' AND handled = 0
			ORDER BY id DESC
			LIMIT 1
		)
		RETURNING id`).
		Bind(dbx.Params{"conversation_id": conversationID}).
		WithContext(ctx)

	var id int64
	if err := q.Row(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to mark last user message handled: %w", err)
	}
	return id, true, nil
}

func encodeMetadata(metadata any) (any, error) {
	switch m := metadata.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(m) == 0 {
			return nil, nil
		}
		return string(m), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message metadata: %w", err)
	}
	return string(data), nil
}
