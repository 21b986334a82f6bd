// Package supabase is the hosted record store, talking to the Supabase
// PostgREST endpoint.
package supabase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"calendai/ai-calendar/config"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/supabase-go"
)

// Store implements store.Store over the messages, events and users tables.
// The PostgREST client takes no context, so calls are bounded by the
// transport rather than by ctx.
type Store struct {
	client *supabase.Client
	log    *logrus.Entry
}

func New(apiURL, apiKey string) (*Store, error) {
	if apiURL == "" || apiKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL or SUPABASE_KEY is missing")
	}

	client, err := supabase.NewClient(strings.TrimRight(apiURL, "/"), apiKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Store{
		client: client,
		log:    config.Logger.WithField("store", "supabase"),
	}, nil
}

// Close is a no-op; the client holds no pooled resources of its own.
func (s *Store) Close() error {
	return nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// decodeRows unmarshals a PostgREST array response.
func decodeRows(resp []byte, into any) error {
	if err := json.Unmarshal(resp, into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// isUniqueViolation matches the Postgres unique_violation code in a
// PostgREST error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "(23505)")
}
