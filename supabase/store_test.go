package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ store.Store = (*Store)(nil)

type recorded struct {
	Method string
	Path   string
	Query  map[string]string
	Prefer string
	Body   string
}

// fakeRest answers PostgREST calls from a queue of canned replies.
type fakeRest struct {
	mu       sync.Mutex
	requests []recorded
	replies  []reply
}

type reply struct {
	status int
	body   string
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	query := map[string]string{}
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  query,
		Prefer: r.Header.Get("Prefer"),
		Body:   string(body),
	})
	next := reply{status: http.StatusOK, body: "[]"}
	if len(f.replies) > 0 {
		next, f.replies = f.replies[0], f.replies[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(next.status)
	_, _ = io.WriteString(w, next.body)
}

func newFakeStore(t *testing.T, replies ...reply) (*Store, *fakeRest) {
	t.Helper()
	fake := &fakeRest{replies: replies}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(srv.URL, "anon-key")
	require.NoError(t, err)
	return s, fake
}

func ok(body string) reply {
	return reply{status: http.StatusOK, body: body}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New("", "key")
	assert.Error(t, err)
	_, err = New("http://localhost", "")
	assert.Error(t, err)
}

func TestSaveMessage(t *testing.T) {
	s, fake := newFakeStore(t, ok(`[{"id":7,"conversation_id":3,"sender":"user","message":"[no text content]"}]`))

	uid := int64(5)
	id, err := s.SaveMessage(context.Background(), types.NewMessage{
		ConversationID: 3,
		UserID:         &uid,
		Sender:         types.SenderUser,
		Text:           "   ",
		Metadata:       map[string]string{"tool_policy": "force"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/messages", req.Path)
	assert.Contains(t, req.Prefer, "return=representation")

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, types.NoTextContent, sent["message"])
	assert.Equal(t, float64(5), sent["user_id"])
	assert.Equal(t, map[string]any{"tool_policy": "force"}, sent["metadata"])
	assert.Equal(t, false, sent["handled"])
}

func TestSaveMessageRejectsSender(t *testing.T) {
	s, fake := newFakeStore(t)
	_, err := s.SaveMessage(context.Background(), types.NewMessage{ConversationID: 1, Sender: "robot", Text: "hi"})
	assert.Error(t, err)
	assert.Empty(t, fake.requests)
}

func TestGetMessagesForChat(t *testing.T) {
	s, fake := newFakeStore(t, ok(`[
		{"id":1,"conversation_id":3,"user_id":5,"sender":"user","message":"hi","metadata":null,"timestamp":"2025-01-08T10:00:00Z","handled":true},
		{"id":2,"conversation_id":3,"user_id":null,"sender":"assistant","message":"hello","metadata":{"tool_policy":"auto"},"timestamp":"2025-01-08T10:00:01Z","handled":false}
	]`))

	msgs, err := s.GetMessagesForChat(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "eq.3", fake.requests[0].Query["conversation_id"])
	assert.Equal(t, "id.asc.nullslast", fake.requests[0].Query["order"])

	assert.True(t, msgs[0].Handled)
	require.NotNil(t, msgs[0].UserID)
	assert.Equal(t, int64(5), *msgs[0].UserID)
	assert.Nil(t, msgs[0].Metadata)

	assert.Equal(t, types.SenderAssistant, msgs[1].Sender)
	assert.Nil(t, msgs[1].UserID)
	assert.JSONEq(t, `{"tool_policy":"auto"}`, string(msgs[1].Metadata))
}

func TestMarkMessageHandledMissing(t *testing.T) {
	s, fake := newFakeStore(t, ok(`[]`))

	err := s.MarkMessageHandled(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, http.MethodPatch, fake.requests[0].Method)
	assert.Equal(t, "eq.42", fake.requests[0].Query["id"])
}

func TestMarkLastUnhandledUserMessageHandled(t *testing.T) {
	s, fake := newFakeStore(t,
		ok(`[{"id":9}]`),
		ok(`[{"id":9,"handled":true}]`),
	)

	id, found, err := s.MarkLastUnhandledUserMessageHandled(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(9), id)

	lookup := fake.requests[0]
	assert.Equal(t, "eq.user", lookup.Query["sender"])
	assert.Equal(t, "eq.false", lookup.Query["handled"])
	assert.Equal(t, "id.desc.nullslast", lookup.Query["order"])
	assert.Equal(t, "1", lookup.Query["limit"])

	update := fake.requests[1]
	assert.Equal(t, http.MethodPatch, update.Method)
	assert.Equal(t, "eq.9", update.Query["id"])
	assert.Equal(t, "eq.false", update.Query["handled"])
}

func TestMarkLastUnhandledRetriesLostRace(t *testing.T) {
	s, fake := newFakeStore(t,
		ok(`[{"id":9}]`),
		ok(`[]`),
		ok(`[{"id":8}]`),
		ok(`[{"id":8,"handled":true}]`),
	)

	id, found, err := s.MarkLastUnhandledUserMessageHandled(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(8), id)
	assert.Len(t, fake.requests, 4)
}

func TestMarkLastUnhandledNone(t *testing.T) {
	s, _ := newFakeStore(t, ok(`[]`))

	_, found, err := s.MarkLastUnhandledUserMessageHandled(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAddEventUpserts(t *testing.T) {
	s, fake := newFakeStore(t, ok(`[{"id":4,"user_id":5,"title":"Gym"}]`))

	id, err := s.AddEvent(context.Background(), types.CalendarEvent{
		UserID:      5,
		Title:       " Gym ",
		Description: "legs",
		StartDate:   "2025-01-10",
		StartTime:   "07:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	req := fake.requests[0]
	assert.Equal(t, eventConflict, req.Query["on_conflict"])
	assert.Contains(t, req.Prefer, "resolution=merge-duplicates")

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, "Gym", sent["title"])
	assert.Equal(t, "2025-01-10", sent["end_date"])
	assert.NotContains(t, sent, "id")
}

func TestAddEventRequiresTitle(t *testing.T) {
	s, fake := newFakeStore(t)
	_, err := s.AddEvent(context.Background(), types.CalendarEvent{UserID: 1, StartDate: "2025-01-10"})
	assert.Error(t, err)
	assert.Empty(t, fake.requests)
}

func TestEventExists(t *testing.T) {
	s, fake := newFakeStore(t, ok(`[{"id":4}]`), ok(`[]`))

	key := types.EventKey{UserID: 5, Title: "Gym", StartDate: "2025-01-10", EndDate: "2025-01-10", StartTime: "07:00"}
	exists, err := s.EventExists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "eq.Gym", fake.requests[0].Query["title"])
	assert.Equal(t, "eq.", fake.requests[0].Query["end_time"])

	exists, err = s.EventExists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListEventsScope(t *testing.T) {
	s, fake := newFakeStore(t,
		ok(`[{"id":1,"user_id":5,"title":"Gym","start_date":"2025-01-10"}]`),
		ok(`[]`),
	)

	events, err := s.ListEvents(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Gym", events[0].Title)
	assert.Equal(t, "eq.5", fake.requests[0].Query["user_id"])
	assert.Equal(t, "start_date.asc.nullslast,start_time.asc.nullslast,id.asc.nullslast", fake.requests[0].Query["order"])

	_, err = s.ListEvents(context.Background(), store.AllUsers)
	require.NoError(t, err)
	assert.NotContains(t, fake.requests[1].Query, "user_id")
}

func TestUsers(t *testing.T) {
	s, _ := newFakeStore(t,
		reply{status: http.StatusConflict, body: `{"code":"23505","message":"duplicate key value violates unique constraint"}`},
		reply{status: http.StatusBadRequest, body: `{"code":"42P01","message":"relation does not exist"}`},
		ok(`[]`),
		ok(`[{"id":2,"username":"alice","password":"hash","email":"a@b.se"}]`),
	)
	ctx := context.Background()

	_, err := s.AddUser(ctx, types.User{Username: "alice", PasswordHash: "hash", Email: "a@b.se"})
	assert.ErrorIs(t, err, store.ErrDuplicateUser)

	_, err = s.AddUser(ctx, types.User{Username: "bob", PasswordHash: "hash", Email: "b@b.se"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrDuplicateUser)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	u, err := s.GetUserByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "hash", u.PasswordHash)
}
