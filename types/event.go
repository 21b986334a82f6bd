package types

import (
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// EventProposal is the structured event produced by the create_calendar_event
// tool call. It is not persisted until the user confirms it.
// Empty times mean the event has no time of day.
type EventProposal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location,omitempty"`
}

// CalendarEvent is a confirmed, persisted event.
type CalendarEvent struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"user_id" db:"user_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	StartDate   string `json:"start_date" db:"start_date"`
	EndDate     string `json:"end_date" db:"end_date"`
	StartTime   string `json:"start_time" db:"start_time"`
	EndTime     string `json:"end_time" db:"end_time"`
	Location    string `json:"location,omitempty" db:"location"`
}

// EventKey is the uniqueness tuple of a calendar event.
type EventKey struct {
	UserID    int64
	Title     string
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
}

// Key returns the uniqueness tuple of e.
func (e CalendarEvent) Key() EventKey {
	return EventKey{
		UserID:    e.UserID,
		Title:     strings.TrimSpace(e.Title),
		StartDate: strings.TrimSpace(e.StartDate),
		EndDate:   strings.TrimSpace(e.EndDate),
		StartTime: strings.TrimSpace(e.StartTime),
		EndTime:   strings.TrimSpace(e.EndTime),
	}
}

// Trimmed returns p with surrounding whitespace removed from every field.
func (p EventProposal) Trimmed() EventProposal {
	return EventProposal{
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		StartDate:   strings.TrimSpace(p.StartDate),
		EndDate:     strings.TrimSpace(p.EndDate),
		StartTime:   strings.TrimSpace(p.StartTime),
		EndTime:     strings.TrimSpace(p.EndTime),
		Location:    strings.TrimSpace(p.Location),
	}
}

// ToEvent converts a confirmed proposal into an event owned by userID.
func (p EventProposal) ToEvent(userID int64) CalendarEvent {
	t := p.Trimmed()
	return CalendarEvent{
		UserID:      userID,
		Title:       t.Title,
		Description: t.Description,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Location:    t.Location,
	}
}

// StartDay parses StartDate in loc.
func (e CalendarEvent) StartDay(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(e.StartDate), loc)
}

// SortKey orders events by start date then start time, with a missing time sorting as midnight.
func (e CalendarEvent) SortKey() string {
	st := strings.TrimSpace(e.StartTime)
	if st == "" {
		st = "00:00"
	}
	return strings.TrimSpace(e.StartDate) + " " + st
}

type GetEventsResponse struct {
	Success      bool            `json:"success"`
	Events       []CalendarEvent `json:"events"`
	ErrorMessage string          `json:"error,omitempty"`
}
