// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xminit/supportcore/internal/models"
	"github.com/xminit/supportcore/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetCurrentState retrieves the current state for a conversation in a flow.
func (sm *StoreBasedStateManager) GetCurrentState(ctx context.Context, conversationID string, flowType models.FlowType) (models.StateType, error) {
	slog.Debug("StateManager GetCurrentState", "conversationID", conversationID, "flowType", flowType)

	convState, err := sm.store.GetConversationState(conversationID, string(flowType))
	if err != nil {
		slog.Error("StateManager GetCurrentState error", "error", err, "conversationID", conversationID, "flowType", flowType)
		return "", err
	}

	if convState == nil {
		slog.Debug("StateManager GetCurrentState not found", "conversationID", conversationID, "flowType", flowType)
		return "", nil
	}

	return models.StateType(convState.CurrentState), nil
}

// SetCurrentState updates the current state for a conversation in a flow.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, conversationID string, flowType models.FlowType, state models.StateType) error {
	slog.Debug("StateManager SetCurrentState", "conversationID", conversationID, "flowType", flowType, "state", state)

	convState, err := sm.store.GetConversationState(conversationID, string(flowType))
	if err != nil {
		slog.Error("StateManager SetCurrentState get error", "error", err, "conversationID", conversationID, "flowType", flowType)
		return err
	}

	now := time.Now()
	if convState == nil {
		convState = &models.ConversationState{
			ConversationID: conversationID,
			FlowType:       string(flowType),
			CurrentState:   string(state),
			StateData:      make(map[string]string),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	} else {
		convState.CurrentState = string(state)
		convState.UpdatedAt = now
	}

	if err := sm.store.SaveConversationState(*convState); err != nil {
		slog.Error("StateManager SetCurrentState save error", "error", err, "conversationID", conversationID, "flowType", flowType, "state", state)
		return err
	}
	return nil
}

// GetStateData retrieves additional data associated with the conversation's state.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, conversationID string, flowType models.FlowType, key models.DataKey) (string, error) {
	convState, err := sm.store.GetConversationState(conversationID, string(flowType))
	if err != nil {
		slog.Error("StateManager GetStateData error", "error", err, "conversationID", conversationID, "flowType", flowType, "key", key)
		return "", err
	}

	if convState == nil || convState.StateData == nil {
		return "", nil
	}
	return convState.StateData[string(key)], nil
}

// SetStateData stores additional data associated with the conversation's state.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, conversationID string, flowType models.FlowType, key models.DataKey, value string) error {
	slog.Debug("StateManager SetStateData", "conversationID", conversationID, "flowType", flowType, "key", key)

	convState, err := sm.store.GetConversationState(conversationID, string(flowType))
	if err != nil {
		slog.Error("StateManager SetStateData get error", "error", err, "conversationID", conversationID, "flowType", flowType, "key", key)
		return err
	}

	now := time.Now()
	if convState == nil {
		convState = &models.ConversationState{
			ConversationID: conversationID,
			FlowType:       string(flowType),
			CurrentState:   "",
			StateData:      map[string]string{string(key): value},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	} else {
		if convState.StateData == nil {
			convState.StateData = make(map[string]string)
		}
		convState.StateData[string(key)] = value
		convState.UpdatedAt = now
	}

	if err := sm.store.SaveConversationState(*convState); err != nil {
		slog.Error("StateManager SetStateData save error", "error", err, "conversationID", conversationID, "flowType", flowType, "key", key)
		return err
	}
	return nil
}

// TransitionState transitions from one state to another, verifying the
// current state first.
func (sm *StoreBasedStateManager) TransitionState(ctx context.Context, conversationID string, flowType models.FlowType, fromState, toState models.StateType) error {
	currentState, err := sm.GetCurrentState(ctx, conversationID, flowType)
	if err != nil {
		return err
	}

	if currentState != fromState {
		err := fmt.Errorf("invalid state transition: expected %s, current is %s", fromState, currentState)
		slog.Error("StateManager TransitionState invalid transition", "error", err, "conversationID", conversationID, "flowType", flowType)
		return err
	}

	if err := sm.SetCurrentState(ctx, conversationID, flowType, toState); err != nil {
		return err
	}

	slog.Info("StateManager TransitionState succeeded", "conversationID", conversationID, "flowType", flowType, "from", fromState, "to", toState)
	return nil
}

// ResetState removes all state data for a conversation in a flow.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, conversationID string, flowType models.FlowType) error {
	if err := sm.store.DeleteConversationState(conversationID, string(flowType)); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "conversationID", conversationID, "flowType", flowType)
		return err
	}
	slog.Info("StateManager ResetState succeeded", "conversationID", conversationID, "flowType", flowType)
	return nil
}
