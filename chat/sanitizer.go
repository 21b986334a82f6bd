package chat

import (
	"strings"

	"calendai/ai-calendar/llm"
	"calendai/ai-calendar/types"
)

// SanitizeHistory turns transcript entries into completion messages. Entries
// without text are dropped, and so are user entries already acted upon.
func SanitizeHistory(entries []Entry) []llm.Message {
	out := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		role := normalizeRole(e.Role)
		if role == llm.RoleUser && e.Handled {
			continue
		}
		text := ExtractText(e.Content)
		if text == NoTextContent {
			continue
		}
		out = append(out, llm.Message{Role: role, Content: text})
	}
	return out
}

func normalizeRole(sender types.Sender) llm.Role {
	switch strings.ToLower(strings.TrimSpace(string(sender))) {
	case "assistant", "ai", "bot":
		return llm.RoleAssistant
	case "system":
		return llm.RoleSystem
	default:
		return llm.RoleUser
	}
}
