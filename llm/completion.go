package llm

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolChoice tells the completion service whether it may, must, or must not
// call a tool. Name is only set for a forced call.
type ToolChoice struct {
	Mode string
	Name string
}

const (
	ChoiceNone   = "none"
	ChoiceAuto   = "auto"
	ChoiceForced = "forced"
)

var (
	ToolChoiceNone = ToolChoice{Mode: ChoiceNone}
	ToolChoiceAuto = ToolChoice{Mode: ChoiceAuto}
)

// ForceTool requires the service to call the named tool.
func ForceTool(name string) ToolChoice {
	return ToolChoice{Mode: ChoiceForced, Name: name}
}

func (c ToolChoice) String() string {
	if c.Mode == ChoiceForced {
		return "forced:" + c.Name
	}
	return c.Mode
}

// Tool is a function the service may invoke. Parameters is a JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Request struct {
	Messages   []Message
	Tools      []Tool
	ToolChoice ToolChoice
}

type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// Response carries the assistant text, which is empty rather than absent when
// the model only called a tool, and at most one tool call.
type Response struct {
	Text     string
	ToolCall *ToolCall
}

// Completer is a chat completion service with tool calling.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
