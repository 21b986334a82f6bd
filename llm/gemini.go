package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"calendai/ai-calendar/config"

	"github.com/sirupsen/logrus"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewGemini(apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	body := buildGeminiBody(req)

	jsonData, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var res geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(res.Candidates) == 0 {
		return Response{}, fmt.Errorf("no candidates returned from Gemini")
	}

	var out Response
	var texts []string
	for _, part := range res.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			if out.ToolCall == nil {
				out.ToolCall = &ToolCall{Name: part.FunctionCall.Name, Arguments: part.FunctionCall.Args}
			}
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	out.Text = strings.Join(texts, "")

	config.Logger.WithFields(logrus.Fields{
		"model":       c.model,
		"tool_choice": req.ToolChoice.String(),
		"tool_call":   out.ToolCall != nil,
	}).Debug("Gemini completion finished")

	return out, nil
}

func buildGeminiBody(req Request) map[string]interface{} {
	var system []string
	contents := []map[string]interface{}{}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, geminiContent("model", m.Content))
		default:
			contents = append(contents, geminiContent("user", m.Content))
		}
	}

	body := map[string]interface{}{
		"contents": contents,
		"generationConfig": map[string]interface{}{
			"temperature":     0.3,
			"maxOutputTokens": 1000,
		},
	}

	if len(system) > 0 {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": strings.Join(system, "\n\n")}},
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]map[string]interface{}, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  geminiSchema(t.Parameters),
			})
		}
		body["tools"] = []map[string]interface{}{{"functionDeclarations": decls}}
		body["toolConfig"] = map[string]interface{}{"functionCallingConfig": geminiCallingConfig(req.ToolChoice)}
	}

	return body
}

func geminiContent(role, text string) map[string]interface{} {
	return map[string]interface{}{
		"role":  role,
		"parts": []map[string]string{{"text": text}},
	}
}

func geminiCallingConfig(choice ToolChoice) map[string]interface{} {
	switch choice.Mode {
	case ChoiceForced:
		return map[string]interface{}{"mode": "ANY", "allowedFunctionNames": []string{choice.Name}}
	case ChoiceNone:
		return map[string]interface{}{"mode": "NONE"}
	default:
		return map[string]interface{}{"mode": "AUTO"}
	}
}

// geminiSchema drops JSON schema keywords the Gemini API rejects.
func geminiSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if k == "additionalProperties" {
			continue
		}
		out[k] = v
	}
	return out
}
