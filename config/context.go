package config

// Digest defaults used when the settings leave them unset
const (
	DefaultLookaheadDays = 30
	DefaultDigestLimit   = 10
)

// Tool exposed to the completion service
const (
	CreateEventTool = "create_calendar_event"
)

// Notification types published on the change feed
const (
	NotificationProposalCreated = "proposal_created"
	NotificationEventAdded      = "event_added"
	NotificationEventDuplicate  = "event_duplicate"
)

// Assistant replies recorded by the confirm flow
const (
	EventAddedText     = "✅ Event successfully added!"
	EventExistsText    = "ℹ️ This event already exists in your calendar."
	ProposalCancelText = "Okay, I won't add that event."
	ProposalLapsedText = "The last suggested event is no longer waiting for confirmation. Ask again to get a new suggestion."
)
