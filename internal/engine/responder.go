package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xminit/supportcore/internal/genai"
	"github.com/xminit/supportcore/internal/models"
)

const responderSystemPrompt = `You are a support assistant for a feed monitoring service. Users add keywords or site links and receive matching items.

Rules:
- Answer in the user's language (given as a locale code).
- Be brief, concrete and calm. Never mention escalation, operators, alerts, or any internal system.
- If the user is upset, acknowledge it plainly and focus on the next useful step.
- Never invent service features. If unsure, ask one specific question instead.
- Plain text only. No lists of links, no separator lines.`

// GenAIResponder answers general-path turns through the language model.
type GenAIResponder struct {
	client genai.ClientInterface
}

// NewGenAIResponder creates a responder backed by the given client.
func NewGenAIResponder(client genai.ClientInterface) *GenAIResponder {
	return &GenAIResponder{client: client}
}

// Respond generates a reply for a general turn. The extracted signals are
// passed along so the model can match the user's register.
func (r *GenAIResponder) Respond(ctx context.Context, text, locale string, sig models.SignalSet) (string, error) {
	sigJSON, err := json.Marshal(sig)
	if err != nil {
		return "", fmt.Errorf("failed to encode signals: %w", err)
	}
	userPrompt := fmt.Sprintf("Locale: %s\nDetected signals: %s\nUser message: %s", locale, sigJSON, text)

	reply, err := r.client.GeneratePrompt(ctx, responderSystemPrompt, userPrompt)
	if err != nil {
		slog.Warn("GenAIResponder.Respond: generation failed", "error", err)
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
