package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/vantley/answercore/internal/llm"
)

// Turn is one prior message in a conversation.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Generator drafts an answer from the question and retrieved chunks. The
// pipeline treats it as an external collaborator: any error falls back to
// the extractive generator, never to a hard failure.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []string, history []Turn) (string, error)
}

const noContextAnswer = "I don't have enough information to answer that question. " +
	"Could you try rephrasing or asking about something else?"

// Extractive is the built-in generator used when no LLM is configured. It
// answers with the best retrieved chunk verbatim.
type Extractive struct{}

func (Extractive) Generate(_ context.Context, _ string, chunks []string, _ []Turn) (string, error) {
	if len(chunks) == 0 {
		return noContextAnswer, nil
	}
	response := "Based on the information available, I can provide this answer: " + chunks[0]
	if len(response) > 500 {
		response = response[:497] + "..."
	}
	return response, nil
}

const maxContextChars = 12000

const systemPromptTemplate = `You are a helpful assistant. Answer the user's question based on the following context, using appropriate formatting to make your response clear and easy to read.

Context:
%s
%s
Formatting Guidelines:
- For lists: Use bullet points or numbered format
- For tutorials/how-to: Structure as step-by-step with clear headings
- Use **bold** for important terms and numbers
- Use headers (##, ###) to organize longer responses
- Break up long text into readable sections

If the context doesn't contain the information needed to answer the question, politely say you don't have that information and suggest they try rephrasing their question or ask about something else.`

// LLMGenerator drafts answers through a chat-completion provider.
type LLMGenerator struct {
	provider     llm.Provider
	temperature  float64
	maxTokens    int
	historyTurns int
}

// NewLLMGenerator wraps an llm.Provider. historyTurns bounds how many
// recent conversation turns reach the prompt.
func NewLLMGenerator(provider llm.Provider, temperature float64, maxTokens, historyTurns int) *LLMGenerator {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	if historyTurns <= 0 {
		historyTurns = 8
	}
	return &LLMGenerator{
		provider:     provider,
		temperature:  temperature,
		maxTokens:    maxTokens,
		historyTurns: historyTurns,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, question string, chunks []string, history []Turn) (string, error) {
	if len(chunks) == 0 {
		return noContextAnswer, nil
	}

	combined := strings.Join(chunks, "\n\n")
	if len(combined) > maxContextChars {
		combined = combined[:maxContextChars] + "..."
	}

	prompt := &llm.Prompt{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, combined, formatHistory(history, g.historyTurns)),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: question}},
	}

	topP := 0.9
	resp, err := g.provider.Complete(ctx, prompt, &llm.RequestOptions{
		MaxTokens:   &g.maxTokens,
		Temperature: &g.temperature,
		TopP:        &topP,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// formatHistory renders the most recent turns for the system prompt.
func formatHistory(history []Turn, maxTurns int) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var b strings.Builder
	b.WriteString("\nPrevious conversation:\n")
	for _, t := range history {
		role := "Assistant"
		if t.Role == "user" {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Content)
	}
	return b.String()
}

var (
	_ Generator = Extractive{}
	_ Generator = (*LLMGenerator)(nil)
)
