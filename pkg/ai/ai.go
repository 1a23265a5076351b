// Package ai wraps the chat and embedding models behind the chat endpoint.
// Backends live in the openai and ollama subpackages.
package ai

import (
	"context"
	"errors"
	"math"
	"sync"
)

// ChatMessage represents a single message in a chat conversation.
//
// Role must be one of:
//   - "user"      → a user-provided message
//   - "assistant" → a message from the AI assistant
type ChatMessage struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	MaxTokens     int      // Upper bound on generated tokens, 0 for the model default
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// StreamEvent represents an event in a streaming response.
type StreamEvent struct {
	Type    string // "content" | "error"
	Content string
	Err     error
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens caps the length of the generated answer.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// ApplyOptions returns defaults overridden by opts.
func ApplyOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

// GraphAIClient is the model surface used by the chat pipeline and the
// embedding backfill.
type GraphAIClient interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
	// GenerateCompletionWithFormat constrains the reply to the JSON schema of
	// out and decodes it into out.
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error
	GenerateChatStream(
		ctx context.Context,
		messages []ChatMessage,
		opts ...GenerateOption,
	) (<-chan StreamEvent, error)
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// Meter accumulates token usage across requests. Backends embed it.
type Meter struct {
	mu      sync.Mutex
	metrics ModelMetrics
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (m *Meter) ResetMetrics() {
	m.mu.Lock()
	m.metrics = ModelMetrics{}
	m.mu.Unlock()
}

// GetMetrics returns the accumulated usage since the last reset.
func (m *Meter) GetMetrics() ModelMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Record adds the usage of one request.
func (m *Meter) Record(in, out int, durationMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.InputTokens += in
	m.metrics.OutputTokens += out
	m.metrics.TotalTokens += in + out
	m.metrics.DurationMs += durationMs

	if m.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(m.metrics.TotalTokens) * 1000.0) / float64(m.metrics.DurationMs)
		m.metrics.TokenPerSecond = float32(math.Round(tokensPerSecond*100) / 100)
	}
}

// DefaultEmbeddingDim matches the graph_nodes.embedding column.
const DefaultEmbeddingDim = 1536

// ErrNotConfigured is returned when a model endpoint has no credentials.
var ErrNotConfigured = errors.New("ai model not configured")
