package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	if s == StatePending {
		return "pending"
	}
	return "idle"
}

var (
	ErrProposalPending   = errors.New("a proposal is already awaiting confirmation")
	ErrNoPendingProposal = errors.New("no proposal awaiting confirmation")
	ErrInvalidProposal   = errors.New("proposal needs a title and a valid start date")
)

type ConfirmOutcome struct {
	Event         types.CalendarEvent
	EventID       int64
	AlreadyExists bool
	Text          string
}

// Lifecycle holds the single outstanding proposal of a conversation.
type Lifecycle struct {
	mu             sync.Mutex
	conversationID int64
	userID         int64
	store          store.EventStore
	transcript     *Transcript
	pending        *types.EventProposal
	log            logrus.FieldLogger
}

func NewLifecycle(conversationID, userID int64, st store.EventStore, transcript *Transcript) *Lifecycle {
	return &Lifecycle{
		conversationID: conversationID,
		userID:         userID,
		store:          st,
		transcript:     transcript,
		log: config.Logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"user_id":         userID,
		}),
	}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		return StatePending
	}
	return StateIdle
}

// Pending returns a copy of the outstanding proposal, or nil.
func (l *Lifecycle) Pending() *types.EventProposal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return nil
	}
	p := *l.pending
	return &p
}

// Propose attributes the proposal to the newest unhandled user message, in the
// store and then in the transcript, and makes it pending.
func (l *Lifecycle) Propose(ctx context.Context, p types.EventProposal) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending != nil {
		return 0, ErrProposalPending
	}

	id, ok, err := l.store.MarkLastUnhandledUserMessageHandled(ctx, l.conversationID)
	if err != nil {
		return 0, err
	}

	switch {
	case ok && l.transcript.MarkHandled(id):
	case ok:
		l.log.WithField("message_id", id).Warn("Handled message missing from transcript, marking last unhandled entry")
		l.transcript.MarkLastUnhandledUser()
	default:
		// already handled in the store; keep the cache consistent anyway
		id, _ = l.transcript.MarkLastUnhandledUser()
	}

	l.pending = &p
	l.log.WithFields(logrus.Fields{"message_id": id, "title": p.Title}).Info("Proposal pending")
	return id, nil
}

// Confirm stores the pending proposal, with any non-empty fields of edited
// applied on top. An existing identical event is reported instead of stored
// again. On a store error the proposal stays pending.
func (l *Lifecycle) Confirm(ctx context.Context, edited *types.EventProposal) (ConfirmOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending == nil {
		return ConfirmOutcome{}, ErrNoPendingProposal
	}

	proposal := mergeProposal(*l.pending, edited)
	if err := validateProposal(&proposal); err != nil {
		return ConfirmOutcome{}, err
	}
	event := proposal.ToEvent(l.userID)

	exists, err := l.store.EventExists(ctx, event.Key())
	if err != nil {
		return ConfirmOutcome{}, fmt.Errorf("failed to check for duplicate event: %w", err)
	}
	if exists {
		l.pending = nil
		l.log.WithField("title", event.Title).Info("Confirmed proposal already exists")
		return ConfirmOutcome{Event: event, AlreadyExists: true, Text: config.EventExistsText}, nil
	}

	id, err := l.store.AddEvent(ctx, event)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	event.ID = id
	l.pending = nil

	l.log.WithFields(logrus.Fields{"event_id": id, "title": event.Title}).Info("Proposal confirmed")
	return ConfirmOutcome{Event: event, EventID: id, Text: config.EventAddedText}, nil
}

// Cancel drops the pending proposal. The triggering message stays handled.
func (l *Lifecycle) Cancel() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return ErrNoPendingProposal
	}
	l.log.WithField("title", l.pending.Title).Info("Proposal cancelled")
	l.pending = nil
	return nil
}

func mergeProposal(base types.EventProposal, edited *types.EventProposal) types.EventProposal {
	if edited == nil {
		return base
	}
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&base.Title, edited.Title)
	pick(&base.Description, edited.Description)
	pick(&base.StartDate, edited.StartDate)
	pick(&base.EndDate, edited.EndDate)
	pick(&base.StartTime, edited.StartTime)
	pick(&base.EndTime, edited.EndTime)
	pick(&base.Location, edited.Location)
	return base
}
