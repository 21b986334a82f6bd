package llm

import "calendai/ai-calendar/config"

// CreateEventTool is the only tool the assistant is offered.
func CreateEventTool() Tool {
	str := map[string]any{"type": "string"}
	return Tool{
		Name:        config.CreateEventTool,
		Description: "Create a structured calendar event based on user input when asked.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":       str,
				"description": str,
				"start_date":  map[string]any{"type": "string", "description": "ISO date YYYY-MM-DD"},
				"end_date":    map[string]any{"type": "string", "description": "ISO date YYYY-MM-DD"},
				"start_time":  map[string]any{"type": "string", "description": "24h time HH:MM, empty if all day"},
				"end_time":    map[string]any{"type": "string", "description": "24h time HH:MM, empty if all day"},
				"location":    str,
			},
			"required":             []string{"title", "description", "start_date", "end_date", "start_time", "end_time"},
			"additionalProperties": false,
		},
	}
}
