package llm

import (
	"fmt"
	"time"
)

const schedulingInstructions = `You help schedule calendars and reminders. Base actions ONLY on the latest user message. If there is a pending event awaiting user confirmation, do NOT call tools again, ask for confirmation or adjustments instead. When the latest user message requests or implies scheduling (natural language like 'I want to ... on Sunday at 14' counts), you MUST call the create_calendar_event tool. Do not say you'll create an event unless you actually call the tool. Leave start_time and end_time empty for all-day events.`

// DatePreamble anchors relative dates to now, rendered in now's location.
func DatePreamble(now time.Time) string {
	return fmt.Sprintf(
		"Today is %s (%s) and the local time is %s (%s). "+
			"Interpret relative dates (today/tomorrow/this Monday/next Friday) relative to this. "+
			"Always output dates in ISO YYYY-MM-DD and 24h time HH:MM. "+
			"Only create or modify calendar events if the MOST RECENT user message explicitly asks for it. "+
			"Do NOT act on older requests in the conversation.",
		now.Format("2006-01-02"), now.Weekday(), now.Format("15:04"), now.Location(),
	)
}

// DigestNote wraps the already-scheduled lines in a duplicate warning.
func DigestNote(lookaheadDays int, lines string) string {
	return fmt.Sprintf(
		"Already scheduled (next %d days):\n%s\n"+
			"Do NOT create duplicates. If the latest user message sounds similar to any of these, ask for confirmation.",
		lookaheadDays, lines,
	)
}

// SchedulingInstructions is the standing system rule set for every turn.
func SchedulingInstructions() string {
	return schedulingInstructions
}

// BuildPrompt orders the prompt as preamble, optional digest, instructions,
// history, then the new utterance.
func BuildPrompt(preamble, digest string, history []Message, userText string) []Message {
	messages := make([]Message, 0, len(history)+4)
	messages = append(messages, Message{Role: RoleSystem, Content: preamble})
	if digest != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: digest})
	}
	messages = append(messages, Message{Role: RoleSystem, Content: SchedulingInstructions()})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: userText})
	return messages
}
