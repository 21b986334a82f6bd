package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"calendai/ai-calendar/notify"
	"calendai/ai-calendar/store"

	"github.com/patrickmn/go-cache"
)

var ErrForeignConversation = errors.New("conversation belongs to another user")

// Registry keeps open conversations in memory and evicts idle ones. A
// pending proposal lives only as long as its conversation stays cached.
type Registry struct {
	mu       sync.Mutex
	store    store.EventStore
	orch     *Orchestrator
	notifier notify.Notifier
	open     *cache.Cache
}

func NewRegistry(st store.EventStore, orch *Orchestrator, notifier notify.Notifier, idle time.Duration) *Registry {
	return &Registry{
		store:    st,
		orch:     orch,
		notifier: notifier,
		open:     cache.New(idle, idle/2+time.Minute),
	}
}

// Open returns the cached conversation or rebuilds it from the store.
// conversationID 0 picks the user's default conversation. Negative ids are
// default conversations and only open for their owner.
func (r *Registry) Open(ctx context.Context, userID, conversationID int64) (*Conversation, error) {
	if conversationID == 0 {
		conversationID = DefaultConversationID(userID)
	}
	if conversationID < 0 && conversationID != DefaultConversationID(userID) {
		return nil, ErrForeignConversation
	}
	key := strconv.FormatInt(conversationID, 10)

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.open.Get(key); ok {
		conv := v.(*Conversation)
		if conv.UserID != userID {
			return nil, ErrForeignConversation
		}
		r.open.SetDefault(key, conv)
		return conv, nil
	}

	history, err := r.store.GetMessagesForChat(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	for _, m := range history {
		if m.UserID != nil && *m.UserID != userID {
			return nil, ErrForeignConversation
		}
	}

	conv := NewConversation(conversationID, userID, r.store, r.orch, r.notifier, history)
	r.open.SetDefault(key, conv)
	return conv, nil
}

// Forget drops a conversation from memory, discarding any pending proposal.
func (r *Registry) Forget(conversationID int64) {
	r.open.Delete(strconv.FormatInt(conversationID, 10))
}

func (r *Registry) Len() int {
	return r.open.ItemCount()
}

// DefaultConversationID gives every user one conversation of their own,
// numbered below zero so explicit conversation ids can never claim it.
func DefaultConversationID(userID int64) int64 {
	if userID <= 0 {
		return -1
	}
	return -userID
}
