// Package calendar holds the read-side views over stored events: the task
// list, the day index used for highlighting, and iCalendar export.
package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"calendai/ai-calendar/types"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

type Filter string

const (
	FilterAll      Filter = "all"
	FilterUpcoming Filter = "upcoming"
	FilterToday    Filter = "today"
	FilterWeek     Filter = "week"
	FilterPast     Filter = "past"
)

// ParseFilter accepts the filter names case-insensitively, "" meaning all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUpcoming, FilterToday, FilterWeek, FilterPast:
		return f, nil
	case "this week", "this_week":
		return FilterWeek, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// TaskRow is one line of the task list.
type TaskRow struct {
	EventID     int64  `json:"event_id"`
	When        string `json:"when"`
	End         string `json:"end,omitempty"`
	Title       string `json:"title"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`

	sortKey string
}

type TaskQuery struct {
	Filter Filter
	Search string
	// Today anchors the date filters; only its calendar date is used.
	Today time.Time
}

// Tasks filters, searches and orders events for the task list. Events with an
// unparseable start date are left out.
func Tasks(events []types.CalendarEvent, q TaskQuery) []TaskRow {
	// a Caser is stateful, so each call gets its own
	folder := cases.Fold()
	today := dateOnly(q.Today)
	weekStart := today.AddDate(0, 0, -mondayOffset(today))
	weekEnd := weekStart.AddDate(0, 0, 6)
	needle := folder.String(strings.TrimSpace(q.Search))

	rows := lo.FilterMap(events, func(e types.CalendarEvent, _ int) (TaskRow, bool) {
		start, err := time.Parse(types.DateLayout, strings.TrimSpace(e.StartDate))
		if err != nil {
			return TaskRow{}, false
		}
		end, err := time.Parse(types.DateLayout, strings.TrimSpace(e.EndDate))
		if err != nil {
			end = start
		}

		switch q.Filter {
		case FilterUpcoming:
			if end.Before(today) {
				return TaskRow{}, false
			}
		case FilterPast:
			if start.After(today) {
				return TaskRow{}, false
			}
		case FilterToday:
			if today.Before(start) || today.After(end) {
				return TaskRow{}, false
			}
		case FilterWeek:
			if end.Before(weekStart) || start.After(weekEnd) {
				return TaskRow{}, false
			}
		}

		title := strings.TrimSpace(e.Title)
		desc := strings.TrimSpace(e.Description)
		loc := strings.TrimSpace(e.Location)
		if needle != "" {
			hay := folder.String(strings.Join([]string{title, desc, loc}, " "))
			if !strings.Contains(hay, needle) {
				return TaskRow{}, false
			}
		}

		row := TaskRow{
			EventID:     e.ID,
			When:        start.Format(types.DateLayout),
			Title:       lo.Ternary(title == "", "(Untitled)", title),
			Time:        timeRange(e.StartTime, e.EndTime),
			Location:    loc,
			Description: desc,
			sortKey:     e.SortKey(),
		}
		if !end.Equal(start) {
			row.End = end.Format(types.DateLayout)
		}
		return row, true
	})

	slices.SortStableFunc(rows, func(a, b TaskRow) int {
		return strings.Compare(a.sortKey, b.sortKey)
	})
	return rows
}

// timeRange is blank for events without times.
func timeRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start
	case start == "":
		return "–" + end
	}
	return start + "–" + end
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
