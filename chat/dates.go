package chat

import (
	"regexp"
	"strings"
	"time"

	"calendai/ai-calendar/types"
)

var (
	tomorrowRe    = regexp.MustCompile(`\btomorrow\b`)
	todayRe       = regexp.MustCompile(`\btoday\b`)
	thisNextDayRe = regexp.MustCompile(`\b(this|next)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ResolveRelativeDates finds an unambiguous relative day in text and returns
// it as an ISO date. ok is false when the model's own dates should stand.
func ResolveRelativeDates(text string, now time.Time) (date string, ok bool) {
	t := strings.ToLower(text)

	switch {
	case tomorrowRe.MatchString(t):
		return now.AddDate(0, 0, 1).Format(types.DateLayout), true
	case todayRe.MatchString(t):
		return now.Format(types.DateLayout), true
	}

	m := thisNextDayRe.FindStringSubmatch(t)
	if m == nil {
		return "", false
	}
	target := weekdays[m[2]]
	ahead := (int(target) - int(now.Weekday()) + 7) % 7
	// "next friday" on a friday is a week out, "this friday" is today
	if ahead == 0 && m[1] == "next" {
		ahead = 7
	}
	return now.AddDate(0, 0, ahead).Format(types.DateLayout), true
}
