// Package flow implements the dialogue state tracker and the guided recovery
// flow for "no feed results" conversations.
package flow

import (
	"context"

	"github.com/xminit/supportcore/internal/models"
)

// StateManager defines the interface for managing per-conversation flow state.
type StateManager interface {
	// GetCurrentState retrieves the current state for a conversation in a flow
	GetCurrentState(ctx context.Context, conversationID string, flowType models.FlowType) (models.StateType, error)

	// SetCurrentState updates the current state for a conversation in a flow
	SetCurrentState(ctx context.Context, conversationID string, flowType models.FlowType, state models.StateType) error

	// GetStateData retrieves additional data associated with the conversation's state
	GetStateData(ctx context.Context, conversationID string, flowType models.FlowType, key models.DataKey) (string, error)

	// SetStateData stores additional data associated with the conversation's state
	SetStateData(ctx context.Context, conversationID string, flowType models.FlowType, key models.DataKey, value string) error

	// TransitionState transitions from one state to another
	TransitionState(ctx context.Context, conversationID string, flowType models.FlowType, fromState, toState models.StateType) error

	// ResetState removes all state data for a conversation in a flow
	ResetState(ctx context.Context, conversationID string, flowType models.FlowType) error
}
