package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xminit/supportcore/internal/models"
)

// DefaultAlertListLimit bounds alert listings when no limit is given.
const DefaultAlertListLimit = 100

// marshalStateData serializes the state data map for a text column.
func marshalStateData(data map[string]string) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state data: %w", err)
	}
	return string(b), nil
}

// scanConversationState scans a state row, decoding the JSON data column.
func scanConversationState(row *sql.Row) (*models.ConversationState, error) {
	var state models.ConversationState
	var dataJSON sql.NullString
	err := row.Scan(&state.ConversationID, &state.FlowType, &state.CurrentState,
		&dataJSON, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}
	state.StateData = make(map[string]string)
	if dataJSON.Valid && dataJSON.String != "" {
		if err := json.Unmarshal([]byte(dataJSON.String), &state.StateData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state data: %w", err)
		}
	}
	return &state, nil
}

// collectAlerts drains an alert query result.
func collectAlerts(rows *sql.Rows) ([]models.AlertRecord, error) {
	var alerts []models.AlertRecord
	for rows.Next() {
		var a models.AlertRecord
		if err := rows.Scan(&a.ID, &a.ConversationID, &a.TurnID, &a.Reason, &a.Confidence,
			&a.Message, &a.ReplyText, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rows: %w", err)
	}
	return alerts, nil
}
