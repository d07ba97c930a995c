// Package llm provides chat-completion providers for answer generation.
// Any OpenAI-compatible API works; Groq is the default preset. Providers
// are optional: the answer pipeline runs extractively without one.
package llm

import "context"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role
	Content string
}

// Prompt is the full input to a completion call.
type Prompt struct {
	SystemPrompt string
	Messages     []Message
}

// Response is a completion result. The token counts feed the rate limiter;
// everything else consumes Content only.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Name returns the provider identifier (e.g. "groq", "openai").
	Name() string
}

// RequestOptions tunes a single completion call. Nil fields keep the
// provider's defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}
