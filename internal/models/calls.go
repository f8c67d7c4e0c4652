package models

import "time"

// CallStatus is the terminal state of an inbound call event.
type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallMissed    CallStatus = "missed"
	// Anything else counts toward total_calls only.
)

// CallRow is one inbound call event from the external call-tracking
// source. The UTM key is populated by the caller's tracking mechanism
// before this pipeline ever sees it. Treated as immutable input.
type CallRow struct {
	CallID     string     `json:"call_id"`
	Status     CallStatus `json:"call_status"`
	CallerID   string     `json:"caller_id,omitempty"`
	DurationS  int64      `json:"duration_seconds,omitempty"`
	OccurredAt time.Time  `json:"occurred_at,omitempty"`
	UTM        UTMKey     `json:"utm"`
}
