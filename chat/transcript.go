package chat

import (
	"sync"

	"calendai/ai-calendar/types"
)

// Entry is one turn of the in-memory transcript. Content is whatever the
// producer handed over; ExtractText reduces it to text.
type Entry struct {
	ID      int64
	Role    types.Sender
	Content any
	Handled bool
}

// Transcript caches a conversation for prompt building. Callers write the
// store first and only then mirror the change here.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewTranscript rebuilds a transcript from stored messages ordered by id.
func NewTranscript(messages []types.Message) *Transcript {
	t := &Transcript{entries: make([]Entry, 0, len(messages))}
	for _, m := range messages {
		t.entries = append(t.entries, Entry{ID: m.ID, Role: m.Sender, Content: m, Handled: m.Handled})
	}
	return t
}

func (t *Transcript) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a snapshot.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// MarkHandled flags the entry with id and reports whether it was found.
func (t *Transcript) MarkHandled(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].ID == id {
			t.entries[i].Handled = true
			return true
		}
	}
	return false
}

// MarkLastUnhandledUser flags the newest unhandled user entry.
func (t *Transcript) MarkLastUnhandledUser() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := &t.entries[i]
		if e.Role == types.SenderUser && !e.Handled {
			e.Handled = true
			return e.ID, true
		}
	}
	return 0, false
}
