package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"calendai/ai-calendar/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a client for the chat completions API. Extra options are
// appended after the key, so tests can point it at another base URL.
func NewOpenAI(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}
	if timeout > 0 {
		base = append(base, option.WithRequestTimeout(timeout))
	}

	return &OpenAIClient{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toOpenAIMessages(req.Messages),
	}

	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
		params.ToolChoice = toOpenAIToolChoice(req.ToolChoice)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices returned from OpenAI")
	}

	msg := completion.Choices[0].Message
	res := Response{Text: msg.Content}

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		res.ToolCall = &ToolCall{
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		}
		if len(msg.ToolCalls) > 1 {
			config.Logger.WithField("tool_calls", len(msg.ToolCalls)).Warn("OpenAI returned several tool calls, using the first")
		}
	}

	config.Logger.WithFields(logrus.Fields{
		"model":       c.model,
		"tool_choice": req.ToolChoice.String(),
		"tool_call":   res.ToolCall != nil,
	}).Debug("OpenAI completion finished")

	return res, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toOpenAITools(tools []Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}

func toOpenAIToolChoice(choice ToolChoice) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch choice.Mode {
	case ChoiceForced:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: choice.Name},
			},
		}
	case ChoiceNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}
}
