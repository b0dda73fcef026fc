// Package store provides storage backends for conversation flow state and
// alert records.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/xminit/supportcore/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetConversationState retrieves the flow state for a conversation.
func (s *PostgresStore) GetConversationState(conversationID, flowType string) (*models.ConversationState, error) {
	row := s.db.QueryRow(
		`SELECT conversation_id, flow_type, current_state, state_data, created_at, updated_at
		 FROM conversation_states WHERE conversation_id = $1 AND flow_type = $2`,
		conversationID, flowType)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationState failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to get conversation state: %w", err)
	}
	return state, nil
}

// SaveConversationState inserts or replaces the flow state row.
func (s *PostgresStore) SaveConversationState(state models.ConversationState) error {
	dataJSON, err := marshalStateData(state.StateData)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO conversation_states (conversation_id, flow_type, current_state, state_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (conversation_id, flow_type) DO UPDATE SET
		   current_state = EXCLUDED.current_state,
		   state_data = EXCLUDED.state_data,
		   updated_at = EXCLUDED.updated_at`,
		state.ConversationID, state.FlowType, state.CurrentState, dataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "conversationID", state.ConversationID)
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	slog.Debug("PostgresStore SaveConversationState succeeded", "conversationID", state.ConversationID, "state", state.CurrentState)
	return nil
}

// DeleteConversationState removes the flow state row if present.
func (s *PostgresStore) DeleteConversationState(conversationID, flowType string) error {
	_, err := s.db.Exec(
		`DELETE FROM conversation_states WHERE conversation_id = $1 AND flow_type = $2`,
		conversationID, flowType)
	if err != nil {
		slog.Error("PostgresStore DeleteConversationState failed", "error", err, "conversationID", conversationID)
		return fmt.Errorf("failed to delete conversation state: %w", err)
	}
	return nil
}

// AddAlert records an escalation.
func (s *PostgresStore) AddAlert(alert models.AlertRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO alerts (id, conversation_id, turn_id, reason, confidence, message, reply_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		alert.ID, alert.ConversationID, alert.TurnID, alert.Reason, alert.Confidence,
		alert.Message, alert.ReplyText, alert.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddAlert failed", "error", err, "conversationID", alert.ConversationID)
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	slog.Debug("PostgresStore AddAlert succeeded", "conversationID", alert.ConversationID, "reason", alert.Reason)
	return nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *PostgresStore) ListAlerts(limit int) ([]models.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultAlertListLimit
	}
	rows, err := s.db.Query(
		`SELECT id, conversation_id, turn_id, reason, confidence, message, reply_text, created_at
		 FROM alerts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		slog.Error("PostgresStore ListAlerts query failed", "error", err)
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
