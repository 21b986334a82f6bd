package llm

import (
	"fmt"

	"calendai/ai-calendar/config"
)

type Model string

const (
	OpenAI Model = "openai"
	Gemini Model = "gemini"
)

// New returns the completer for the configured provider.
func New(settings *config.Settings) (Completer, error) {
	switch Model(settings.LLMProvider) {
	case OpenAI:
		return NewOpenAI(settings.OpenAIAPIKey, settings.OpenAIModel, settings.RequestTimeout)
	case Gemini:
		return NewGemini(settings.GeminiAPIKey, settings.GeminiModel, settings.RequestTimeout)
	default:
		return nil, fmt.Errorf("unsupported model: %s (supported: %s, %s)", settings.LLMProvider, OpenAI, Gemini)
	}
}
