package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/llm"
	"calendai/ai-calendar/notify"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"
)

var errStoreDown = errors.New("store unreachable")

// memStore is an in-memory store.EventStore.
type memStore struct {
	mu       sync.Mutex
	nextMsg  int64
	nextEvt  int64
	messages []types.Message
	events   []types.CalendarEvent

	failList bool
	failMark bool
	failAdd  bool
}

var _ store.EventStore = (*memStore)(nil)

func (s *memStore) SaveMessage(_ context.Context, msg types.NewMessage) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	var meta json.RawMessage
	if msg.Metadata != nil {
		meta, _ = json.Marshal(msg.Metadata)
	}
	text := msg.Text
	if text == "" {
		text = types.NoTextContent
	}
	s.messages = append(s.messages, types.Message{
		ID:             s.nextMsg,
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		Sender:         msg.Sender,
		Text:           text,
		Metadata:       meta,
		Timestamp:      time.Now(),
	})
	return s.nextMsg, nil
}

func (s *memStore) GetMessagesForChat(_ context.Context, conversationID int64) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) MarkMessageHandled(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Handled = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memStore) MarkLastUnhandledUserMessageHandled(_ context.Context, conversationID int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMark {
		return 0, false, errStoreDown
	}
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := &s.messages[i]
		if m.ConversationID == conversationID && m.Sender == types.SenderUser && !m.Handled {
			m.Handled = true
			return m.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *memStore) EventExists(_ context.Context, key types.EventKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) AddEvent(_ context.Context, event types.CalendarEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd {
		return 0, errStoreDown
	}
	for i, e := range s.events {
		if e.Key() == event.Key() {
			s.events[i].Description = event.Description
			s.events[i].Location = event.Location
			return e.ID, nil
		}
	}
	s.nextEvt++
	event.ID = s.nextEvt
	s.events = append(s.events, event)
	return event.ID, nil
}

func (s *memStore) ListEvents(_ context.Context, userID int64) ([]types.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errStoreDown
	}
	var out []types.CalendarEvent
	for _, e := range s.events {
		if userID == store.AllUsers || e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) message(id int64) types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return types.Message{}
}

func (s *memStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// scriptedCompleter replays responses and records requests.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []llm.Response
	err       error
	requests  []llm.Request
	block     chan struct{}
}

func (c *scriptedCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return llm.Response{}, c.err
	}
	if len(c.responses) == 0 {
		return llm.Response{Text: "ok"}, nil
	}
	res := c.responses[0]
	c.responses = c.responses[1:]
	return res, nil
}

func (c *scriptedCompleter) last() llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

func toolCall(args string) llm.Response {
	return llm.Response{ToolCall: &llm.ToolCall{Name: config.CreateEventTool, Arguments: json.RawMessage(args)}}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Publish(_ context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
	return loc
}()

// fixedNow is a Wednesday.
var fixedNow = time.Date(2025, 1, 8, 10, 0, 0, 0, testLoc)

func newTestOrchestrator(completer llm.Completer, st store.CalendarStore) *Orchestrator {
	settings := config.DefaultSettings()
	o, err := NewOrchestrator(completer, st, settings)
	if err != nil {
		panic(err)
	}
	o.now = func() time.Time { return fixedNow }
	o.summarizer.now = o.now
	return o
}

func newTestConversation(completer llm.Completer, st *memStore, notifier notify.Notifier) *Conversation {
	return NewConversation(1, 42, st, newTestOrchestrator(completer, st), notifier, nil)
}
