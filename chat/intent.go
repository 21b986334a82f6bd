package chat

import (
	"fmt"
	"regexp"
	"strings"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/llm"
)

type ToolPolicy int

const (
	// PolicyAuto lets the service decide whether to call the tool.
	PolicyAuto ToolPolicy = iota
	// PolicyForce requires the tool call on this turn.
	PolicyForce
	// PolicyForbid disables tools while a proposal awaits confirmation.
	PolicyForbid
)

var (
	intentRe = regexp.MustCompile(`(?i)\b(add|schedule|create|set up|book|put|make|log|plan|calendar|event|remind|reminder|i (want|need) to|let'?s|please)\b`)

	timeHintRe = regexp.MustCompile(`(?i)\b(today|tomorrow|tonight|monday|tuesday|wednesday|thursday|friday|saturday|sunday|` +
		`(next|this) (week|weekend|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)|` +
		`on \d{1,2}(st|nd|rd|th)?|at \d{1,2}(:\d{2})?\s?(am|pm)?|\d{1,2}:\d{2}|\d{4}-\d{2}-\d{2})\b`)
)

// DecideToolPolicy looks only at the latest utterance. A pending proposal
// always forbids the tool.
func DecideToolPolicy(latestUserText string, hasPending bool) ToolPolicy {
	if hasPending {
		return PolicyForbid
	}
	text := strings.TrimSpace(latestUserText)
	if intentRe.MatchString(text) || timeHintRe.MatchString(text) {
		return PolicyForce
	}
	return PolicyAuto
}

func (p ToolPolicy) ToolChoice() llm.ToolChoice {
	switch p {
	case PolicyForce:
		return llm.ForceTool(config.CreateEventTool)
	case PolicyForbid:
		return llm.ToolChoiceNone
	default:
		return llm.ToolChoiceAuto
	}
}

func (p ToolPolicy) String() string {
	switch p {
	case PolicyAuto:
		return "auto"
	case PolicyForce:
		return "force"
	case PolicyForbid:
		return "forbid"
	}
	return fmt.Sprintf("ToolPolicy(%d)", int(p))
}

func (p ToolPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
