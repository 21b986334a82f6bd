package supabase

import (
	"context"
	"fmt"
	"strings"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
)

const eventConflict = "user_id,title,start_date,start_time,end_date,end_time"

// eventRow omits the id on insert so the identity column assigns it.
type eventRow struct {
	ID          int64  `json:"id,omitempty"`
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
}

func (r eventRow) toEvent() types.CalendarEvent {
	return types.CalendarEvent{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
	}
}

func (s *Store) EventExists(ctx context.Context, key types.EventKey) (bool, error) {
	resp, _, err := s.client.From("events").
		Select("id", "", false).
		Match(map[string]string{
			"user_id":    itoa(key.UserID),
			"title":      key.Title,
			"start_date": key.StartDate,
			"end_date":   key.EndDate,
			"start_time": key.StartTime,
			"end_time":   key.EndTime,
		}).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}

	var rows []eventRow
	if err := decodeRows(resp, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *Store) AddEvent(ctx context.Context, event types.CalendarEvent) (int64, error) {
	key := event.Key()
	if key.Title == "" || key.StartDate == "" {
		return 0, fmt.Errorf("failed to add event: title and start date are required")
	}
	if key.EndDate == "" {
		key.EndDate = key.StartDate
	}

	row := eventRow{
		UserID:      key.UserID,
		Title:       key.Title,
		Description: strings.TrimSpace(event.Description),
		StartDate:   key.StartDate,
		EndDate:     key.EndDate,
		StartTime:   key.StartTime,
		EndTime:     key.EndTime,
		Location:    strings.TrimSpace(event.Location),
	}

	resp, _, err := s.client.From("events").Upsert(row, eventConflict, "representation", "").Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to add event: %w", err)
	}

	var stored []eventRow
	if err := decodeRows(resp, &stored); err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		return 0, fmt.Errorf("failed to add event: no row returned")
	}

	s.log.WithFields(logrus.Fields{
		"event_id":   stored[0].ID,
		"user_id":    key.UserID,
		"start_date": key.StartDate,
	}).Info("Event stored")
	return stored[0].ID, nil
}

func (s *Store) ListEvents(ctx context.Context, userID int64) ([]types.CalendarEvent, error) {
	query := s.client.From("events").Select("*", "", false)
	if userID != store.AllUsers {
		query = query.Eq("user_id", itoa(userID))
	}

	resp, _, err := query.
		Order("start_date", &postgrest.OrderOpts{Ascending: true}).
		Order("start_time", &postgrest.OrderOpts{Ascending: true}).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var rows []eventRow
	if err := decodeRows(resp, &rows); err != nil {
		return nil, err
	}

	events := make([]types.CalendarEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}
