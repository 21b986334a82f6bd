package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"calendai/ai-calendar/config"
	"calendai/ai-calendar/llm"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/sirupsen/logrus"
)

type TurnResult struct {
	AssistantText string
	Proposal      *types.EventProposal
	Policy        ToolPolicy
}

type Orchestrator struct {
	completer       llm.Completer
	summarizer      *Summarizer
	loc             *time.Location
	now             func() time.Time
	lookaheadDays   int
	digestLimit     int
	resolveRelative bool
	log             logrus.FieldLogger
}

func NewOrchestrator(completer llm.Completer, events store.CalendarStore, settings *config.Settings) (*Orchestrator, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		completer:       completer,
		summarizer:      NewSummarizer(events, loc),
		loc:             loc,
		now:             time.Now,
		lookaheadDays:   settings.LookaheadDays,
		digestLimit:     settings.DigestLimit,
		resolveRelative: settings.ResolveRelativeDates,
		log:             config.Logger.WithField("component", "orchestrator"),
	}, nil
}

// ProcessTurn asks the completion service to answer userText given the prior
// entries and, when it calls the event tool, turns the call into a pending
// proposal on conv. Service failures come back as "Error: ..." text. The
// returned error is reserved for store failures while marking the message
// handled.
func (o *Orchestrator) ProcessTurn(ctx context.Context, conv *Conversation, prior []Entry, userText string) (TurnResult, error) {
	lifecycle := conv.Lifecycle()
	policy := DecideToolPolicy(userText, lifecycle.State() == StatePending)
	now := o.now().In(o.loc)

	log := o.log.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"user_id":         conv.UserID,
		"tool_policy":     policy,
	})

	var digest string
	if d := o.summarizer.Summarize(ctx, conv.UserID, o.lookaheadDays, o.digestLimit); len(d) > 0 {
		digest = llm.DigestNote(o.lookaheadDays, FormatDigest(d))
	}

	req := llm.Request{
		Messages:   llm.BuildPrompt(llm.DatePreamble(now), digest, SanitizeHistory(prior), userText),
		Tools:      []llm.Tool{llm.CreateEventTool()},
		ToolChoice: policy.ToolChoice(),
	}

	res, err := o.completer.Complete(ctx, req)
	if err != nil {
		log.WithError(err).Error("Completion request failed")
		return TurnResult{AssistantText: "Error: " + describeFailure(err), Policy: policy}, nil
	}

	result := TurnResult{AssistantText: res.Text, Policy: policy}
	if res.ToolCall == nil {
		return result, nil
	}
	if policy == PolicyForbid {
		log.Warn("Ignoring tool call while a proposal is pending")
		return result, nil
	}

	proposal, err := decodeProposal(res.ToolCall)
	if err != nil {
		log.WithError(err).WithField("arguments", string(res.ToolCall.Arguments)).Warn("Discarding tool call")
		return result, nil
	}

	if o.resolveRelative {
		if day, ok := ResolveRelativeDates(userText, now); ok && day != proposal.StartDate {
			log.WithFields(logrus.Fields{"model_date": proposal.StartDate, "resolved_date": day}).Info("Overriding start date from utterance")
			applyStartDate(proposal, day)
		}
	}

	if _, err := lifecycle.Propose(ctx, *proposal); err != nil {
		if errors.Is(err, ErrProposalPending) {
			log.Warn("Proposal dropped, another one is pending")
			return result, nil
		}
		return result, fmt.Errorf("failed to mark message handled: %w", err)
	}

	result.Proposal = proposal
	return result, nil
}

// decodeProposal reads create_calendar_event arguments. Anything that is not
// an object with a title and an ISO start date is rejected.
func decodeProposal(call *llm.ToolCall) (*types.EventProposal, error) {
	if call.Name != config.CreateEventTool {
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}

	args := bytes.TrimSpace(call.Arguments)
	if len(args) == 0 || args[0] != '{' {
		return nil, fmt.Errorf("tool arguments are not a JSON object")
	}

	var p types.EventProposal
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}

	p = p.Trimmed()
	p.StartTime = normalizeClock(p.StartTime)
	p.EndTime = normalizeClock(p.EndTime)
	if err := validateProposal(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// validateProposal requires a title and start date, and fixes up a missing or
// inverted end date.
func validateProposal(p *types.EventProposal) error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrInvalidProposal
	}
	start, err := time.Parse(types.DateLayout, strings.TrimSpace(p.StartDate))
	if err != nil {
		return ErrInvalidProposal
	}
	end, err := time.Parse(types.DateLayout, strings.TrimSpace(p.EndDate))
	if err != nil || end.Before(start) {
		p.EndDate = strings.TrimSpace(p.StartDate)
	}
	return nil
}

func applyStartDate(p *types.EventProposal, day string) {
	singleDay := p.EndDate == p.StartDate
	p.StartDate = day
	if singleDay || p.EndDate < day {
		p.EndDate = day
	}
}

// normalizeClock turns "9:30" or "09:30:00" into "09:30". Other values are
// left alone.
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05", "3:04", "3:04PM", "3:04 PM", "3PM", "3 PM"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t.Format(types.TimeLayout)
		}
	}
	return s
}

// describeFailure renders a completion error for the transcript. Transport
// errors lose their request URL, which may carry credentials.
func describeFailure(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "completion request failed: " + urlErr.Err.Error()
	}
	return err.Error()
}
