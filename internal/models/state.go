// Package models defines state management structures for recovery flows.
package models

import "time"

// ConversationState represents the current state of a conversation in a flow.
type ConversationState struct {
	ConversationID string            `json:"conversation_id"`
	FlowType       string            `json:"flow_type"`
	CurrentState   string            `json:"current_state"`
	StateData      map[string]string `json:"state_data,omitempty"` // Additional state-specific data
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AlertRecord is the persisted escalation signal a flagged turn leaves behind
// for human operators.
type AlertRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	TurnID         string    `json:"turn_id"`
	Reason         string    `json:"reason"`
	Confidence     float64   `json:"confidence"`
	Message        string    `json:"message"`    // inbound message excerpt
	ReplyText      string    `json:"reply_text"` // what the assistant answered
	CreatedAt      time.Time `json:"created_at"`
}
