package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"calendai/ai-calendar/llm"
	"calendai/ai-calendar/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendLunchScenario(t *testing.T) {
	st := &memStore{}
	completer := &scriptedCompleter{responses: []llm.Response{
		toolCall(`{"title":"Lunch with Sam","description":"","start_date":"2025-01-09","end_date":"2025-01-09","start_time":"12:30","end_time":"13:30"}`),
	}}
	conv := newTestConversation(completer, st, nil)

	reply, err := conv.Send(context.Background(), "schedule lunch with Sam tomorrow at 12:30")
	require.NoError(t, err)

	assert.Equal(t, PolicyForce, reply.Policy)
	req := completer.last()
	assert.Equal(t, llm.ForceTool("create_calendar_event"), req.ToolChoice)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "create_calendar_event", req.Tools[0].Name)

	require.NotNil(t, reply.Proposal)
	assert.Equal(t, "2025-01-09", reply.Proposal.StartDate)
	assert.Equal(t, "12:30", reply.Proposal.StartTime)
	assert.Equal(t, StatePending, conv.Lifecycle().State())

	// empty model text is replaced with a confirmation prompt
	assert.Contains(t, reply.Text, "Lunch with Sam")
	assert.Contains(t, reply.Text, "Shall I add it")

	assert.True(t, st.message(reply.UserMessageID).Handled)
	entries := conv.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Handled)
}

func TestPromptLayout(t *testing.T) {
	st := &memStore{}
	_, err := st.AddEvent(context.Background(), types.CalendarEvent{UserID: 42, Title: "Gym", StartDate: day(2), EndDate: day(2), StartTime: "07:00"})
	require.NoError(t, err)

	completer := &scriptedCompleter{responses: []llm.Response{{Text: "Hello!"}, {Text: "Sure."}}}
	conv := newTestConversation(completer, st, nil)

	_, err = conv.Send(context.Background(), "hi there")
	require.NoError(t, err)
	_, err = conv.Send(context.Background(), "how are you?")
	require.NoError(t, err)

	msgs := completer.last().Messages
	require.Len(t, msgs, 6)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Today is 2025-01-08")
	assert.Contains(t, msgs[1].Content, "- Gym on "+day(2)+" at 07:00")
	assert.Contains(t, msgs[2].Content, "create_calendar_event")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi there"}, msgs[3])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "Hello!"}, msgs[4])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "how are you?"}, msgs[5])
	assert.Equal(t, llm.ToolChoiceAuto, completer.last().ToolChoice)
}

func TestPendingProposalForbidsTools(t *testing.T) {
	st := &memStore{}
	gym := `{"title":"Gym","description":"","start_date":"2025-01-10","end_date":"2025-01-10","start_time":"07:00","end_time":"08:00"}`
	completer := &scriptedCompleter{responses: []llm.Response{
		toolCall(gym),
		// the service ignores tool_choice none
		{Text: "Please confirm the gym session first.", ToolCall: toolCall(gym).ToolCall},
		toolCall(gym),
	}}
	conv := newTestConversation(completer, st, nil)
	ctx := context.Background()

	first, err := conv.Send(ctx, "add gym on friday at 7")
	require.NoError(t, err)
	require.NotNil(t, first.Proposal)

	for _, text := range []string{"actually schedule gym saturday", "and book a haircut"} {
		reply, err := conv.Send(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, PolicyForbid, reply.Policy)
		assert.Equal(t, llm.ToolChoiceNone, completer.last().ToolChoice)
		assert.Nil(t, reply.Proposal)
		assert.False(t, st.message(reply.UserMessageID).Handled)
	}
	assert.Equal(t, "Gym", conv.Lifecycle().Pending().Title)
}

func TestHandledMessageNotResent(t *testing.T) {
	st := &memStore{}
	completer := &scriptedCompleter{responses: []llm.Response{
		toolCall(`{"title":"Dentist","description":"","start_date":"2025-01-20","end_date":"2025-01-20","start_time":"","end_time":""}`),
		{Text: "You're welcome"},
	}}
	conv := newTestConversation(completer, st, nil)
	ctx := context.Background()

	_, err := conv.Send(ctx, "book dentist 2025-01-20")
	require.NoError(t, err)
	require.NoError(t, conv.Cancel(ctx))

	_, err = conv.Send(ctx, "thanks")
	require.NoError(t, err)

	for _, m := range completer.last().Messages {
		assert.NotEqual(t, "book dentist 2025-01-20", m.Content)
	}
}

func TestCompletionErrorBecomesText(t *testing.T) {
	st := &memStore{}
	completer := &scriptedCompleter{err: errors.New("request failed: connection refused")}
	conv := newTestConversation(completer, st, nil)

	reply, err := conv.Send(context.Background(), "book gym tomorrow")
	require.NoError(t, err)
	assert.Equal(t, "Error: request failed: connection refused", reply.Text)
	assert.Nil(t, reply.Proposal)
	assert.Equal(t, StateIdle, conv.Lifecycle().State())
	assert.False(t, st.message(reply.UserMessageID).Handled)
	assert.Equal(t, "Error: request failed: connection refused", st.message(reply.AssistantMessageID).Text)
}

func TestCompletionErrorDropsRequestURL(t *testing.T) {
	st := &memStore{}
	cause := &url.Error{Op: "Post", URL: "https://api.example.com/generate?key=SECRET", Err: errors.New("connection refused")}
	completer := &scriptedCompleter{err: fmt.Errorf("request failed: %w", cause)}
	conv := newTestConversation(completer, st, nil)

	reply, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Error: completion request failed: connection refused", reply.Text)
	assert.NotContains(t, st.message(reply.AssistantMessageID).Text, "SECRET")
}

func TestMalformedToolArguments(t *testing.T) {
	cases := map[string]string{
		"invalid json":      `{"title": "Gym",`,
		"not an object":     `["Gym"]`,
		"missing title":     `{"start_date":"2025-01-10"}`,
		"bad start date":    `{"title":"Gym","start_date":"next friday"}`,
		"non-string fields": `{"title":"Gym","start_date":20250110}`,
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			st := &memStore{}
			res := toolCall(args)
			res.Text = "Working on it"
			conv := newTestConversation(&scriptedCompleter{responses: []llm.Response{res}}, st, nil)

			reply, err := conv.Send(context.Background(), "schedule gym")
			require.NoError(t, err)
			assert.Nil(t, reply.Proposal)
			assert.Equal(t, "Working on it", reply.Text)
			assert.Equal(t, StateIdle, conv.Lifecycle().State())
		})
	}
}

func TestProposalDefaultsAndNormalisation(t *testing.T) {
	st := &memStore{}
	completer := &scriptedCompleter{responses: []llm.Response{
		toolCall(`{"title":" Run ","description":"","start_date":"2025-01-12","end_date":"","start_time":"7:05","end_time":"08:00:00"}`),
	}}
	conv := newTestConversation(completer, st, nil)

	reply, err := conv.Send(context.Background(), "plan a run on 2025-01-12")
	require.NoError(t, err)
	require.NotNil(t, reply.Proposal)
	assert.Equal(t, "Run", reply.Proposal.Title)
	assert.Equal(t, "2025-01-12", reply.Proposal.EndDate)
	assert.Equal(t, "07:05", reply.Proposal.StartTime)
	assert.Equal(t, "08:00", reply.Proposal.EndTime)
}

func TestRelativeDateOverridesModel(t *testing.T) {
	st := &memStore{}
	completer := &scriptedCompleter{responses: []llm.Response{
		toolCall(`{"title":"Lunch","description":"","start_date":"2025-01-10","end_date":"2025-01-10","start_time":"12:00","end_time":""}`),
	}}
	conv := newTestConversation(completer, st, nil)

	reply, err := conv.Send(context.Background(), "lunch tomorrow at noon")
	require.NoError(t, err)
	require.NotNil(t, reply.Proposal)
	assert.Equal(t, "2025-01-09", reply.Proposal.StartDate)
	assert.Equal(t, "2025-01-09", reply.Proposal.EndDate)
}

func TestForeignToolIgnored(t *testing.T) {
	st := &memStore{}
	completer := &scriptedCompleter{responses: []llm.Response{
		{ToolCall: &llm.ToolCall{Name: "delete_everything", Arguments: []byte(`{}`)}},
	}}
	conv := newTestConversation(completer, st, nil)

	reply, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Nil(t, reply.Proposal)
}

func TestMarkHandledFailureSurfaces(t *testing.T) {
	st := &memStore{failMark: true}
	completer := &scriptedCompleter{responses: []llm.Response{
		toolCall(`{"title":"Gym","description":"","start_date":"2025-01-10","end_date":"2025-01-10","start_time":"","end_time":""}`),
	}}
	conv := newTestConversation(completer, st, nil)

	_, err := conv.Send(context.Background(), "gym friday")
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, StateIdle, conv.Lifecycle().State())
}
