// Package api exposes the inbound HTTP interface of the support engine.
//
// It accepts user turns at POST /v1/messages, returns the reply envelope,
// and serves recorded alerts read-only for operators.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xminit/supportcore/internal/engine"
	"github.com/xminit/supportcore/internal/models"
	"github.com/xminit/supportcore/internal/store"
)

// Timeouts for the HTTP server and per-turn processing.
const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultTurnTimeout  = 25 * time.Second
)

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Locale         string `json:"locale,omitempty"`
}

// Server routes HTTP requests to the engine and store.
type Server struct {
	engine *engine.Engine
	store  store.Store
	addr   string
}

// NewServer creates the API server.
func NewServer(eng *engine.Engine, st store.Store, addr string) *Server {
	return &Server{engine: eng, store: st, addr: addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", s.messagesHandler)
	mux.HandleFunc("/v1/alerts", s.alertsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// messagesHandler processes one inbound turn and returns the reply envelope.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Server.messagesHandler: invalid request body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	if req.ConversationID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("conversation_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultTurnTimeout)
	defer cancel()

	env, err := s.engine.ProcessTurn(ctx, req.ConversationID, req.Text, req.Locale)
	if err != nil {
		slog.Error("Server.messagesHandler: turn processing failed", "error", err, "conversationID", req.ConversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to process message"))
		return
	}

	writeJSONResponse(w, http.StatusOK, env)
}

// alertsHandler lists recorded escalations, newest first.
func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid limit"))
			return
		}
		limit = parsed
	}

	alerts, err := s.store.ListAlerts(limit)
	if err != nil {
		slog.Error("Server.alertsHandler: failed to list alerts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list alerts"))
		return
	}
	if alerts == nil {
		alerts = []models.AlertRecord{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(alerts))
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
