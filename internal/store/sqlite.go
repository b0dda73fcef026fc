// Package store provides storage backends for conversation flow state and
// alert records.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xminit/supportcore/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetConversationState retrieves the flow state for a conversation.
func (s *SQLiteStore) GetConversationState(conversationID, flowType string) (*models.ConversationState, error) {
	row := s.db.QueryRow(
		`SELECT conversation_id, flow_type, current_state, state_data, created_at, updated_at
		 FROM conversation_states WHERE conversation_id = ? AND flow_type = ?`,
		conversationID, flowType)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to get conversation state: %w", err)
	}
	return state, nil
}

// SaveConversationState inserts or replaces the flow state row.
func (s *SQLiteStore) SaveConversationState(state models.ConversationState) error {
	dataJSON, err := marshalStateData(state.StateData)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO conversation_states (conversation_id, flow_type, current_state, state_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(conversation_id, flow_type) DO UPDATE SET
		   current_state = excluded.current_state,
		   state_data = excluded.state_data,
		   updated_at = excluded.updated_at`,
		state.ConversationID, state.FlowType, state.CurrentState, dataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "conversationID", state.ConversationID)
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "conversationID", state.ConversationID, "state", state.CurrentState)
	return nil
}

// DeleteConversationState removes the flow state row if present.
func (s *SQLiteStore) DeleteConversationState(conversationID, flowType string) error {
	_, err := s.db.Exec(
		`DELETE FROM conversation_states WHERE conversation_id = ? AND flow_type = ?`,
		conversationID, flowType)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversationState failed", "error", err, "conversationID", conversationID)
		return fmt.Errorf("failed to delete conversation state: %w", err)
	}
	return nil
}

// AddAlert records an escalation.
func (s *SQLiteStore) AddAlert(alert models.AlertRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO alerts (id, conversation_id, turn_id, reason, confidence, message, reply_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.ConversationID, alert.TurnID, alert.Reason, alert.Confidence,
		alert.Message, alert.ReplyText, alert.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddAlert failed", "error", err, "conversationID", alert.ConversationID)
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	slog.Debug("SQLiteStore AddAlert succeeded", "conversationID", alert.ConversationID, "reason", alert.Reason)
	return nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *SQLiteStore) ListAlerts(limit int) ([]models.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultAlertListLimit
	}
	rows, err := s.db.Query(
		`SELECT id, conversation_id, turn_id, reason, confidence, message, reply_text, created_at
		 FROM alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		slog.Error("SQLiteStore ListAlerts query failed", "error", err)
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
