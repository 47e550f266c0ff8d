package assistant

import (
	"context"
	"fmt"
)

const systemPrompt = "You are Minerva, a homelab assistant. " +
	"You help the user with their reminders, services, and status overview. " +
	"You MUST NOT invent reminder schedules or service states; " +
	"those come from tools provided to you. " +
	"Right now, tools may not be wired; answer based on the user's question " +
	"and what you are told here."

// Assistant orchestrates chat turns: it keeps per-session history and
// forwards the conversation plus the tool schema to the provider.
type Assistant struct {
	provider Provider
	sessions *SessionManager
}

// ChatResult is what one chat turn produces.
type ChatResult struct {
	Reply     string   `json:"reply"`
	SessionID string   `json:"sessionId"`
	UsedTools []string `json:"usedTools"`
}

func New(provider Provider) *Assistant {
	return &Assistant{
		provider: provider,
		sessions: NewSessionManager(),
	}
}

// Sessions exposes the session manager for the cleanup loop.
func (a *Assistant) Sessions() *SessionManager {
	return a.sessions
}

// Chat runs one assistant turn. An empty sessionID starts a fresh
// conversation; passing the returned id continues it.
func (a *Assistant) Chat(ctx context.Context, message, sessionID string) (*ChatResult, error) {
	sessionID, history := a.sessions.Acquire(sessionID)

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	userTurn := Message{Role: "user", Content: message}
	messages = append(messages, userTurn)

	resp, err := a.provider.Chat(ctx, messages, ToolsSchema())
	if err != nil {
		return nil, fmt.Errorf("provider chat: %w", err)
	}

	a.sessions.Append(sessionID, userTurn, Message{Role: "assistant", Content: resp.Content})

	return &ChatResult{
		Reply:     resp.Content,
		SessionID: sessionID,
		UsedTools: []string{},
	}, nil
}
