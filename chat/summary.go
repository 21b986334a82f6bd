package chat

import (
	"context"
	"slices"
	"strings"
	"time"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// EventDigest is one line of the already-scheduled note.
type EventDigest struct {
	Title     string
	StartDate string
	StartTime string
	Location  string
}

type Summarizer struct {
	events store.CalendarStore
	loc    *time.Location
	now    func() time.Time
	log    logrus.FieldLogger
}

func NewSummarizer(events store.CalendarStore, loc *time.Location) *Summarizer {
	if loc == nil {
		loc = time.Local
	}
	return &Summarizer{
		events: events,
		loc:    loc,
		now:    time.Now,
		log:    config.Logger.WithField("component", "summarizer"),
	}
}

// Summarize returns the user's events starting between today and today plus
// lookaheadDays, soonest first, at most limit of them. It never fails: a
// store error yields an empty digest.
func (s *Summarizer) Summarize(ctx context.Context, userID int64, lookaheadDays, limit int) []EventDigest {
	if lookaheadDays <= 0 {
		lookaheadDays = config.DefaultLookaheadDays
	}
	if limit <= 0 {
		limit = config.DefaultDigestLimit
	}

	events, err := s.events.ListEvents(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Failed to fetch events for digest")
		return nil
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	horizon := today.AddDate(0, 0, lookaheadDays)

	upcoming := lo.Filter(events, func(e types.CalendarEvent, _ int) bool {
		day, err := e.StartDay(s.loc)
		if err != nil {
			return false
		}
		return !day.Before(today) && !day.After(horizon)
	})

	slices.SortStableFunc(upcoming, func(a, b types.CalendarEvent) int {
		return strings.Compare(a.SortKey(), b.SortKey())
	})

	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}

	return lo.Map(upcoming, func(e types.CalendarEvent, _ int) EventDigest {
		return EventDigest{
			Title:     strings.TrimSpace(e.Title),
			StartDate: strings.TrimSpace(e.StartDate),
			StartTime: strings.TrimSpace(e.StartTime),
			Location:  strings.TrimSpace(e.Location),
		}
	})
}

// FormatDigest renders one bullet line per event.
func FormatDigest(digest []EventDigest) string {
	lines := lo.Map(digest, func(d EventDigest, _ int) string {
		title := d.Title
		if title == "" {
			title = "(Untitled)"
		}
		line := "- " + title + " on " + d.StartDate
		if d.StartTime != "" {
			line += " at " + d.StartTime
		}
		if d.Location != "" {
			line += " (" + d.Location + ")"
		}
		return line
	})
	return strings.Join(lines, "\n")
}
