package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"

	"github.com/ollama/ollama/api"
)

// defaultContext is the context window Ollama allocates unless told otherwise.
const defaultContext = 4096

func (c *GraphOllamaClient) request(options ai.GenerateOptions, messages []ai.ChatMessage, stream bool) *api.ChatRequest {
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(messages))
	var text strings.Builder
	for _, sys := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sys})
		text.WriteString(sys)
	}
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Message})
		text.WriteString(m.Message)
	}

	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}

	// The prompt plus room for the answer must fit the context window.
	reserve := options.MaxTokens
	if reserve <= 0 {
		reserve = 1024
	}
	if tokens := ai.CountTokens(text.String()) + reserve; tokens > defaultContext {
		req.Options["num_ctx"] = tokens
	}
	return req
}

func (c *GraphOllamaClient) complete(ctx context.Context, req *api.ChatRequest) (string, error) {
	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.Record(final.Metrics.PromptEvalCount, final.Metrics.EvalCount, final.Metrics.TotalDuration.Milliseconds())
	return final.Message.Content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.chatModel, Temperature: 0.3}, opts...)
	return c.complete(ctx, c.request(options, []ai.ChatMessage{{Role: "user", Message: prompt}}, false))
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *GraphOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	format, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.extractionModel, Temperature: 0.1}, opts...)
	req := c.request(options, []ai.ChatMessage{{Role: "user", Message: prompt}}, false)
	req.Format = json.RawMessage(format)

	content, err := c.complete(ctx, req)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("empty response from model for " + name)
	}
	return ai.UnmarshalFlexible(content, out)
}

// GenerateChatStream streams the assistant reply incrementally. A failure
// is delivered as a final "error" event before the channel closes.
func (c *GraphOllamaClient) GenerateChatStream(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.chatModel, Temperature: 0.2}, opts...)
	req := c.request(options, messages, true)

	out := make(chan ai.StreamEvent, 16)

	go func() {
		defer close(out)

		err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
			if s := cr.Message.Content; s != "" {
				select {
				case out <- ai.StreamEvent{Type: "content", Content: s}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if cr.Done {
				c.Record(cr.Metrics.PromptEvalCount, cr.Metrics.EvalCount, cr.TotalDuration.Milliseconds())
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("[AI] Chat stream failed", "err", err)
			out <- ai.StreamEvent{Type: "error", Err: err}
		}
	}()

	return out, nil
}
