package chat

import (
	"testing"
	"time"

	"calendai/ai-calendar/llm"

	"github.com/stretchr/testify/assert"
)

func TestDecideToolPolicy(t *testing.T) {
	cases := []struct {
		text    string
		pending bool
		want    ToolPolicy
	}{
		{"schedule lunch with Sam tomorrow at 12:30", false, PolicyForce},
		{"Book a dentist appointment", false, PolicyForce},
		{"I want to go running", false, PolicyForce},
		{"let's do dinner", false, PolicyForce},
		{"remind me to call mom", false, PolicyForce},
		{"dinner on sunday", false, PolicyForce},
		{"meeting 2025-03-04", false, PolicyForce},
		{"standup 9:15", false, PolicyForce},
		{"call at 5pm", false, PolicyForce},
		{"party on 3rd", false, PolicyForce},
		{"something next week", false, PolicyForce},
		{"how are you?", false, PolicyAuto},
		{"thanks, that's great", false, PolicyAuto},
		{"", false, PolicyAuto},
		{"schedule lunch tomorrow", true, PolicyForbid},
		{"how are you?", true, PolicyForbid},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DecideToolPolicy(tc.text, tc.pending), tc.text)
	}
}

func TestToolPolicyChoice(t *testing.T) {
	assert.Equal(t, llm.ToolChoiceNone, PolicyForbid.ToolChoice())
	assert.Equal(t, llm.ToolChoiceAuto, PolicyAuto.ToolChoice())
	assert.Equal(t, llm.ForceTool("create_calendar_event"), PolicyForce.ToolChoice())
	assert.Equal(t, "forbid", PolicyForbid.String())
}

func TestResolveRelativeDates(t *testing.T) {
	wed := time.Date(2025, 1, 8, 10, 0, 0, 0, testLoc)

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"lunch tomorrow", "2025-01-09", true},
		{"gym today", "2025-01-08", true},
		{"this friday", "2025-01-10", true},
		{"next friday", "2025-01-10", true},
		{"this wednesday", "2025-01-08", true},
		{"next wednesday", "2025-01-15", true},
		{"this monday", "2025-01-13", true},
		{"on 2025-02-01", "", false},
		{"friday", "", false},
	}
	for _, tc := range cases {
		got, ok := ResolveRelativeDates(tc.text, wed)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}
