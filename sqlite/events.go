package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/pocketbase/dbx"
	"github.com/sirupsen/logrus"
)

var eventColumns = []string{"id", "user_id", "title", "description", "start_date", "end_date", "start_time", "end_time", "location"}

func keyExp(key types.EventKey) dbx.HashExp {
	return dbx.HashExp{
		"user_id":    key.UserID,
		"title":      key.Title,
		"start_date": key.StartDate,
		"end_date":   key.EndDate,
		"start_time": key.StartTime,
		"end_time":   key.EndTime,
	}
}

func (d *DB) EventExists(ctx context.Context, key types.EventKey) (bool, error) {
	var id int64
	err := d.db.Select("id").
		From("events").
		Where(keyExp(key)).
		Limit(1).
		WithContext(ctx).
		Row(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}
	return true, nil
}

func (d *DB) AddEvent(ctx context.Context, event types.CalendarEvent) (int64, error) {
	key := event.Key()
	if key.Title == "" || key.StartDate == "" {
		return 0, fmt.Errorf("failed to add event: title and start date are required")
	}
	if key.EndDate == "" {
		key.EndDate = key.StartDate
	}

	_, err := d.db.NewQuery(`
		INSERT INTO events (user_id, title, description, start_date, end_date, start_time, end_time, location)
		VALUES ({:user_id}, {:title}, {:description}, {:start_date}, {:end_date}, {:start_time}, {:end_time}, {:location})
		ON CONFLICT (user_id, title, start_date, start_time, end_date, end_time)
		DO UPDATE SET description = excluded.description, location = excluded.location`).
		Bind(dbx.Params{
			"user_id":     key.UserID,
			"title":       key.Title,
			"description": event.Description,
			"start_date":  key.StartDate,
			"end_date":    key.EndDate,
			"start_time":  key.StartTime,
			"end_time":    key.EndTime,
			"location":    event.Location,
		}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to add event: %w", err)
	}

	// LastInsertId is not reliable on the update branch of an upsert
	var id int64
	if err := d.db.Select("id").From("events").Where(keyExp(key)).WithContext(ctx).Row(&id); err != nil {
		return 0, fmt.Errorf("failed to read event id: %w", err)
	}

	d.log.WithFields(logrus.Fields{"event_id": id, "user_id": key.UserID, "title": key.Title}).Info("Event stored")
	return id, nil
}

func (d *DB) ListEvents(ctx context.Context, userID int64) ([]types.CalendarEvent, error) {
	q := d.db.Select(eventColumns...).From("events")
	if userID != store.AllUsers {
		q = q.Where(dbx.HashExp{"user_id": userID})
	}

	var events []types.CalendarEvent
	if err := q.OrderBy("start_date ASC", "start_time ASC", "id ASC").WithContext(ctx).All(&events); err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}
