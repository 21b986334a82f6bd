package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/notify"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrTurnInFlight = errors.New("a message is still being processed")
	ErrEmptyMessage = errors.New("message is empty")
)

// Reply is the outcome of one Send.
type Reply struct {
	UserMessageID      int64
	AssistantMessageID int64
	Text               string
	Proposal           *types.EventProposal
	Policy             ToolPolicy
}

// turnMetadata is stored with assistant messages.
type turnMetadata struct {
	ToolPolicy    string               `json:"tool_policy,omitempty"`
	Proposal      *types.EventProposal `json:"proposal,omitempty"`
	EventID       int64                `json:"event_id,omitempty"`
	AlreadyExists bool                 `json:"already_exists,omitempty"`
}

// ProposalLapsed reports whether the newest assistant message proposed an
// event that was neither stored nor is still pending, as happens when the
// conversation was cancelled or evicted from memory.
func ProposalLapsed(messages []types.Message, pending *types.EventProposal) bool {
	if pending != nil {
		return false
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender != types.SenderAssistant {
			continue
		}
		var meta turnMetadata
		if len(messages[i].Metadata) == 0 || json.Unmarshal(messages[i].Metadata, &meta) != nil {
			return false
		}
		return meta.Proposal != nil && meta.EventID == 0 && !meta.AlreadyExists
	}
	return false
}

// Conversation serialises the turns of one chat. Only one Send, Confirm or
// Cancel runs at a time; a concurrent call fails with ErrTurnInFlight.
type Conversation struct {
	ID     int64
	UserID int64

	busy       sync.Mutex
	store      store.EventStore
	orch       *Orchestrator
	notifier   notify.Notifier
	transcript *Transcript
	lifecycle  *Lifecycle
	log        logrus.FieldLogger
}

// NewConversation resumes a conversation from its stored messages.
func NewConversation(id, userID int64, st store.EventStore, orch *Orchestrator, notifier notify.Notifier, history []types.Message) *Conversation {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	transcript := NewTranscript(history)
	return &Conversation{
		ID:         id,
		UserID:     userID,
		store:      st,
		orch:       orch,
		notifier:   notifier,
		transcript: transcript,
		lifecycle:  NewLifecycle(id, userID, st, transcript),
		log:        config.Logger.WithFields(logrus.Fields{"conversation_id": id, "user_id": userID}),
	}
}

func (c *Conversation) Lifecycle() *Lifecycle   { return c.lifecycle }
func (c *Conversation) Transcript() *Transcript { return c.transcript }

// Send records text, runs a turn and records the assistant's answer.
func (c *Conversation) Send(ctx context.Context, text string) (Reply, error) {
	if !c.busy.TryLock() {
		return Reply{}, ErrTurnInFlight
	}
	defer c.busy.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	prior := c.transcript.Entries()

	userMsgID, err := c.store.SaveMessage(ctx, types.NewMessage{
		ConversationID: c.ID,
		UserID:         c.userRef(),
		Sender:         types.SenderUser,
		Text:           text,
	})
	if err != nil {
		return Reply{}, err
	}
	c.transcript.Append(Entry{ID: userMsgID, Role: types.SenderUser, Content: text})

	turn, err := c.orch.ProcessTurn(ctx, c, prior, text)
	if err != nil {
		return Reply{UserMessageID: userMsgID}, err
	}

	answer := turn.AssistantText
	if strings.TrimSpace(answer) == "" && turn.Proposal != nil {
		answer = describeProposal(*turn.Proposal)
	}

	asstMsgID, err := c.store.SaveMessage(ctx, types.NewMessage{
		ConversationID: c.ID,
		UserID:         c.userRef(),
		Sender:         types.SenderAssistant,
		Text:           answer,
		Metadata:       turnMetadata{ToolPolicy: turn.Policy.String(), Proposal: turn.Proposal},
	})
	if err != nil {
		return Reply{UserMessageID: userMsgID}, err
	}
	c.transcript.Append(Entry{ID: asstMsgID, Role: types.SenderAssistant, Content: answer})

	if turn.Proposal != nil {
		c.notifier.Publish(ctx, notify.Event{
			Type:           config.NotificationProposalCreated,
			UserID:         c.UserID,
			ConversationID: c.ID,
			Proposal:       turn.Proposal,
			Time:           time.Now().UTC(),
		})
	}

	c.log.WithFields(logrus.Fields{
		"message_id":  userMsgID,
		"tool_policy": turn.Policy,
		"proposal":    turn.Proposal != nil,
	}).Info("Turn processed")

	return Reply{
		UserMessageID:      userMsgID,
		AssistantMessageID: asstMsgID,
		Text:               answer,
		Proposal:           turn.Proposal,
		Policy:             turn.Policy,
	}, nil
}

// Confirm resolves the pending proposal and records the outcome as an
// assistant message.
func (c *Conversation) Confirm(ctx context.Context, edits *types.EventProposal) (ConfirmOutcome, error) {
	if !c.busy.TryLock() {
		return ConfirmOutcome{}, ErrTurnInFlight
	}
	defer c.busy.Unlock()

	outcome, err := c.lifecycle.Confirm(ctx, edits)
	if err != nil {
		return ConfirmOutcome{}, err
	}

	proposal := types.EventProposal{
		Title:       outcome.Event.Title,
		Description: outcome.Event.Description,
		StartDate:   outcome.Event.StartDate,
		EndDate:     outcome.Event.EndDate,
		StartTime:   outcome.Event.StartTime,
		EndTime:     outcome.Event.EndTime,
		Location:    outcome.Event.Location,
	}

	id, err := c.store.SaveMessage(ctx, types.NewMessage{
		ConversationID: c.ID,
		UserID:         c.userRef(),
		Sender:         types.SenderAssistant,
		Text:           outcome.Text,
		Metadata:       turnMetadata{Proposal: &proposal, EventID: outcome.EventID, AlreadyExists: outcome.AlreadyExists},
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to record confirmation: %w", err)
	}
	c.transcript.Append(Entry{ID: id, Role: types.SenderAssistant, Content: outcome.Text})

	kind := config.NotificationEventAdded
	if outcome.AlreadyExists {
		kind = config.NotificationEventDuplicate
	}
	c.notifier.Publish(ctx, notify.Event{
		Type:           kind,
		UserID:         c.UserID,
		ConversationID: c.ID,
		EventID:        outcome.EventID,
		Proposal:       &proposal,
		Time:           time.Now().UTC(),
	})

	return outcome, nil
}

// Cancel discards the pending proposal without writing anything.
func (c *Conversation) Cancel(ctx context.Context) error {
	if !c.busy.TryLock() {
		return ErrTurnInFlight
	}
	defer c.busy.Unlock()
	return c.lifecycle.Cancel()
}

func (c *Conversation) userRef() *int64 {
	if c.UserID == 0 {
		return nil
	}
	id := c.UserID
	return &id
}

func describeProposal(p types.EventProposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I've prepared \"%s\" on %s", p.Title, p.StartDate)
	if p.EndDate != "" && p.EndDate != p.StartDate {
		fmt.Fprintf(&b, " until %s", p.EndDate)
	}
	if p.StartTime != "" {
		fmt.Fprintf(&b, " at %s", p.StartTime)
		if p.EndTime != "" {
			fmt.Fprintf(&b, "-%s", p.EndTime)
		}
	}
	if p.Location != "" {
		fmt.Fprintf(&b, " (%s)", p.Location)
	}
	b.WriteString(". Shall I add it to your calendar?")
	return b.String()
}
