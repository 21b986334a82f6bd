package calendar

import (
	"sort"
	"strings"
	"time"

	"calendai/ai-calendar/types"
)

// DayEntry is an event as listed under one calendar day.
type DayEntry struct {
	EventID     int64  `json:"event_id"`
	Title       string `json:"title"`
	When        string `json:"when,omitempty"`
	Description string `json:"description,omitempty"`
}

// EventDates indexes events by every day they cover, start through end
// inclusive. An invalid end date, or one before the start, counts as the
// start day; events with an invalid start are skipped.
func EventDates(events []types.CalendarEvent) map[string][]DayEntry {
	index := make(map[string][]DayEntry)
	for _, e := range events {
		start, err := time.Parse(types.DateLayout, strings.TrimSpace(e.StartDate))
		if err != nil {
			continue
		}
		end, err := time.Parse(types.DateLayout, strings.TrimSpace(e.EndDate))
		if err != nil || end.Before(start) {
			end = start
		}

		entry := DayEntry{
			EventID:     e.ID,
			Title:       strings.TrimSpace(e.Title),
			When:        dayLabel(e.StartTime, e.EndTime),
			Description: strings.TrimSpace(e.Description),
		}
		if entry.Title == "" {
			entry.Title = "(Untitled)"
		}

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			key := d.Format(types.DateLayout)
			index[key] = append(index[key], entry)
		}
	}
	return index
}

// HighlightedDays lists the keys of an EventDates index in order.
func HighlightedDays(index map[string][]DayEntry) []string {
	days := make([]string, 0, len(index))
	for d := range index {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

func dayLabel(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start != "" && end != "" {
		return start + "–" + end
	}
	if start != "" {
		return start
	}
	return end
}
