// Package notify publishes calendar changes for other clients to pick up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/types"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Event struct {
	Type           string               `json:"type"`
	UserID         int64                `json:"user_id"`
	ConversationID int64                `json:"conversation_id"`
	EventID        int64                `json:"event_id,omitempty"`
	Proposal       *types.EventProposal `json:"proposal,omitempty"`
	Time           time.Time            `json:"time"`
}

// Notifier never fails the caller; delivery problems are logged.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

type Redis struct {
	client  *redis.Client
	channel string
	log     logrus.FieldLogger
}

// NewRedis connects to addr, which is either host:port or a redis:// URL.
func NewRedis(ctx context.Context, addr, channel string) (*Redis, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	config.Logger.WithField("channel", channel).Info("Connected to Redis")
	return &Redis{client: client, channel: channel, log: config.Logger.WithField("component", "notify")}, nil
}

func (r *Redis) Publish(ctx context.Context, ev Event) {
	payload, err := encode(ev)
	if err != nil {
		r.log.WithError(err).Warn("Failed to encode notification")
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.WithError(err).WithField("type", ev.Type).Warn("Failed to publish notification")
		return
	}
	r.log.WithFields(logrus.Fields{"type": ev.Type, "conversation_id": ev.ConversationID}).Debug("Published notification")
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func encode(ev Event) ([]byte, error) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	return json.Marshal(ev)
}
