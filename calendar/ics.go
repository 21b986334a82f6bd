package calendar

import (
	"fmt"
	"strings"
	"time"

	"calendai/ai-calendar/types"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://calendai.local/events"))

// EventUID is stable for an event's uniqueness tuple, so re-exports update
// rather than duplicate entries in subscribing clients.
func EventUID(e types.CalendarEvent) string {
	k := e.Key()
	name := fmt.Sprintf("%d|%s|%s|%s|%s|%s", k.UserID, k.Title, k.StartDate, k.StartTime, k.EndDate, k.EndTime)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@calendai"
}

// ExportICS renders events as an iCalendar document. Timed events are
// interpreted in loc; events without a start time become all-day entries.
func ExportICS(name string, events []types.CalendarEvent, loc *time.Location, stamp time.Time) (string, error) {
	if loc == nil {
		loc = time.UTC
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//calendai//ai-calendar//EN")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		start, end, allDay, err := eventSpan(e, loc)
		if err != nil {
			return "", fmt.Errorf("failed to export event %d: %w", e.ID, err)
		}

		ev := cal.AddEvent(EventUID(e))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(strings.TrimSpace(e.Title))
		if d := strings.TrimSpace(e.Description); d != "" {
			ev.SetDescription(d)
		}
		if l := strings.TrimSpace(e.Location); l != "" {
			ev.SetLocation(l)
		}
		if allDay {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(end)
		} else {
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		}
	}

	return cal.Serialize(), nil
}

// eventSpan resolves the start and exclusive end of e. All-day spans end on
// the day after end_date; a timed event without an end lasts one hour.
func eventSpan(e types.CalendarEvent, loc *time.Location) (time.Time, time.Time, bool, error) {
	startDay, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(e.StartDate), loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	endDay, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(e.EndDate), loc)
	if err != nil || endDay.Before(startDay) {
		endDay = startDay
	}

	startClock := strings.TrimSpace(e.StartTime)
	if startClock == "" {
		return startDay, endDay.AddDate(0, 0, 1), true, nil
	}

	start, err := atClock(startDay, startClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}

	end := start.Add(time.Hour)
	if endClock := strings.TrimSpace(e.EndTime); endClock != "" {
		if t, err := atClock(endDay, endClock, loc); err == nil && t.After(start) {
			end = t
		}
	}
	return start, end, false, nil
}

func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(types.TimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
