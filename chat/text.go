package chat

import (
	"strings"

	"calendai/ai-calendar/types"
)

// NoTextContent is what ExtractText yields for values without usable text.
const NoTextContent = types.NoTextContent

type contentBearer interface {
	ContentText() string
}

// ExtractText reduces a transcript value to text. A value exposing its own
// content wins, then a non-empty string, otherwise NoTextContent.
func ExtractText(v any) string {
	switch c := v.(type) {
	case nil:
		return NoTextContent
	case contentBearer:
		return nonEmpty(c.ContentText())
	case map[string]any:
		if s, ok := c["content"].(string); ok {
			return nonEmpty(s)
		}
		return NoTextContent
	case string:
		return nonEmpty(c)
	case *string:
		if c == nil {
			return NoTextContent
		}
		return nonEmpty(*c)
	}
	return NoTextContent
}

func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoTextContent
	}
	return s
}
