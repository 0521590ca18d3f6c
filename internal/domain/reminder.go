package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReminderState string

const (
	StateScheduled  ReminderState = "scheduled"
	StateDue        ReminderState = "due"
	StateDelivering ReminderState = "delivering"
	StateDismissed  ReminderState = "dismissed"
	StateSnoozed    ReminderState = "snoozed"
	StateIgnored    ReminderState = "ignored"
)

// Terminal reports whether the state ends a reminder's lifecycle.
// Terminal records are only ever followed by a freshly scheduled one.
func (s ReminderState) Terminal() bool {
	switch s {
	case StateDismissed, StateSnoozed, StateIgnored:
		return true
	}
	return false
}

var reminderTransitions = map[ReminderState][]ReminderState{
	StateScheduled:  {StateDue},
	StateDue:        {StateDelivering, StateIgnored, StateDismissed, StateSnoozed},
	StateDelivering: {StateDismissed, StateSnoozed, StateIgnored},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s ReminderState) CanTransitionTo(next ReminderState) bool {
	for _, allowed := range reminderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ChannelKind string

const (
	ChannelNotification ChannelKind = "notification"
	ChannelOverlay      ChannelKind = "overlay"
)

type ResponseKind string

const (
	ResponseDismissed ResponseKind = "dismissed"
	ResponseSnoozed   ResponseKind = "snoozed"
	ResponseIgnored   ResponseKind = "ignored"
)

func ValidResponseKind(s string) bool {
	switch ResponseKind(s) {
	case ResponseDismissed, ResponseSnoozed, ResponseIgnored:
		return true
	}
	return false
}

// UserResponse is the user's reaction to a delivered reminder.
// SnoozeFor is meaningful only when Kind is ResponseSnoozed.
type UserResponse struct {
	Kind      ResponseKind  `json:"kind"`
	SnoozeFor time.Duration `json:"snooze_for,omitempty"`
}

// ReminderRecord is one reminder cycle. Owned exclusively by the
// scheduler; all state mutations go through its single scheduling loop.
type ReminderRecord struct {
	ID           uuid.UUID     `json:"id"`
	ScheduledFor time.Time     `json:"scheduled_for"`
	State        ReminderState `json:"state"`
	Channel      *ChannelKind  `json:"channel,omitempty"`
	Response     *UserResponse `json:"response,omitempty"`
	DecisionID   uuid.UUID     `json:"decision_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	Archived     bool          `json:"archived,omitempty"`
}

// ReminderMessage is the payload handed to a delivery channel.
type ReminderMessage struct {
	RecordID   uuid.UUID       `json:"record_id"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Disruption DisruptionLevel `json:"disruption_level"`
}
