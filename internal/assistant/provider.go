package assistant

import (
	"context"
	"fmt"
)

// Message is one turn of an assistant conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the provider's answer to a chat.
type Response struct {
	Content string
}

// Provider abstracts the language model backing the assistant, local or
// remote. Implementations may use the tool definitions for
// function-calling or ignore them.
type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error)
}

// DummyProvider echoes the user's message back. It stands in until a
// real model is wired up and keeps the chat endpoint functional.
type DummyProvider struct{}

func (DummyProvider) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error) {
	lastUser := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = messages[i].Content
			break
		}
	}
	content := fmt.Sprintf("Minerva dummy LLM here.\nYou said: %s\n\nLLM integration is not wired up yet.", lastUser)
	return &Response{Content: content}, nil
}
