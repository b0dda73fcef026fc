// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType represents a specific type of dialogue flow.
type FlowType string

// StateType represents a specific state within a flow.
type StateType string

// DataKey represents a key for storing state-specific data.
type DataKey string

// Flow type constants.
const (
	FlowTypeRecovery FlowType = "recovery"
)

// State constants for the guided recovery flow.
const (
	// StateNotActive means no recovery flow is in progress.
	StateNotActive StateType = "NOT_ACTIVE"
	// StateAwaitingIntent means the clarifying question is pending an answer.
	StateAwaitingIntent StateType = "AWAITING_INTENT"
	// StateReadyToRespond means intent is confirmed and the combined
	// diagnosis+suggestions response is due this turn.
	StateReadyToRespond StateType = "READY_TO_RESPOND"
)

// IsValidStateType checks whether a stored state value is recognized.
// Anything else is treated as state corruption and reset to NOT_ACTIVE.
func IsValidStateType(s StateType) bool {
	switch s {
	case StateNotActive, StateAwaitingIntent, StateReadyToRespond, "":
		return true
	default:
		return false
	}
}

// Data key constants for the recovery flow.
const (
	DataKeyPendingQuestion DataKey = "pendingQuestion" // last open clarifying question text
	DataKeyReportedInput   DataKey = "reportedInput"   // keyword or URL the user reported
	DataKeyInputKind       DataKey = "inputKind"       // "keyword" or "url"
	DataKeyIntentBucket    DataKey = "intentBucket"    // confirmed content-type goal
	DataKeyLastFailureText DataKey = "lastFailureText" // last user-visible failure message
	DataKeyLastFailureAt   DataKey = "lastFailureAt"   // unix seconds of last failure message
)
