// Package store provides storage backends for conversation flow state and
// alert records.
//
// It includes an in-memory store for tests and single-process use, plus
// SQLite and PostgreSQL backends selected by DSN.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/xminit/supportcore/internal/models"
)

// Store defines the persistence surface used by the engine and the state
// manager.
type Store interface {
	// GetConversationState returns the stored state for a conversation and
	// flow type, or nil when none exists.
	GetConversationState(conversationID, flowType string) (*models.ConversationState, error)

	// SaveConversationState inserts or replaces the state row.
	SaveConversationState(state models.ConversationState) error

	// DeleteConversationState removes the state row if present.
	DeleteConversationState(conversationID, flowType string) error

	// AddAlert records an escalation for operator review.
	AddAlert(alert models.AlertRecord) error

	// ListAlerts returns the most recent alerts, newest first, up to limit.
	ListAlerts(limit int) ([]models.AlertRecord, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration for store construction.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use a URI scheme or key=value form; anything else is treated as an SQLite
// file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore keeps state and alerts in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]models.ConversationState
	alerts []models.AlertRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]models.ConversationState)}
}

func stateKey(conversationID, flowType string) string {
	return conversationID + "|" + flowType
}

// GetConversationState returns a copy of the stored state or nil.
func (s *InMemoryStore) GetConversationState(conversationID, flowType string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[stateKey(conversationID, flowType)]
	if !ok {
		return nil, nil
	}
	copied := state
	copied.StateData = make(map[string]string, len(state.StateData))
	for k, v := range state.StateData {
		copied.StateData[k] = v
	}
	return &copied, nil
}

// SaveConversationState inserts or replaces the state.
func (s *InMemoryStore) SaveConversationState(state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(state.ConversationID, state.FlowType)] = state
	return nil
}

// DeleteConversationState removes the state if present.
func (s *InMemoryStore) DeleteConversationState(conversationID, flowType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, stateKey(conversationID, flowType))
	return nil
}

// AddAlert records an alert.
func (s *InMemoryStore) AddAlert(alert models.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *InMemoryStore) ListAlerts(limit int) ([]models.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AlertRecord, len(s.alerts))
	copy(out, s.alerts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
