package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"

	"github.com/openai/openai-go/v3"
)

func (c *GraphOpenAIClient) chat() (*openai.Client, error) {
	if c.ChatClient == nil {
		return nil, fmt.Errorf("%w: chat endpoint has no api key", ai.ErrNotConfigured)
	}
	return c.ChatClient, nil
}

func (c *GraphOpenAIClient) params(
	options ai.GenerateOptions,
	msgs []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	all := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+len(msgs))
	for _, sp := range options.SystemPrompts {
		all = append(all, openai.SystemMessage(sp))
	}
	all = append(all, msgs...)

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    all,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}
	return body
}

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
//
// Example:
//
//	intent, err := client.GenerateCompletion(ctx, prompt, ai.WithMaxTokens(20))
func (c *GraphOpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	client, err := c.chat()
	if err != nil {
		return "", err
	}
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.chatModel, Temperature: 0.3}, opts...)

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := client.Chat.Completions.New(rCtx, c.params(options, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}))
	if err != nil {
		return "", err
	}
	c.Record(int(response.Usage.PromptTokens), int(response.Usage.CompletionTokens), time.Since(start).Milliseconds())

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	return response.Choices[0].Message.Content, nil
}

// GenerateCompletionWithFormat sends a prompt to the chat model and
// unmarshals the response into out, using the JSON schema of out as a
// strict response format.
//
// Example:
//
//	var out struct {
//		Entities []string `json:"entities"`
//	}
//	err := client.GenerateCompletionWithFormat(ctx, "entities", "Entity names", prompt, &out)
func (c *GraphOpenAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	client, err := c.chat()
	if err != nil {
		return err
	}
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.extractionModel, Temperature: 0.1}, opts...)

	body := c.params(options, []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)})
	body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(description),
				Schema:      ai.GenerateSchema(out),
				Strict:      openai.Bool(true),
			},
		},
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := client.Chat.Completions.New(rCtx, body)
	if err != nil {
		return err
	}
	c.Record(int(response.Usage.PromptTokens), int(response.Usage.CompletionTokens), time.Since(start).Milliseconds())

	if len(response.Choices) == 0 {
		return fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}
	return ai.UnmarshalFlexible(message, out)
}

// GenerateChatStream streams the assistant reply to a conversation. The
// channel is closed when the reply is complete. A failure after the stream
// started is delivered as a final "error" event.
func (c *GraphOpenAIClient) GenerateChatStream(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	client, err := c.chat()
	if err != nil {
		return nil, err
	}
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.chatModel, Temperature: 0.2}, opts...)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(message.Message))
		default:
			msgs = append(msgs, openai.UserMessage(message.Message))
		}
	}
	body := c.params(options, msgs)
	body.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	start := time.Now()
	stream := client.Chat.Completions.NewStreaming(ctx, body)
	contentChan := make(chan ai.StreamEvent, 16)

	go func() {
		defer close(contentChan)
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case contentChan <- ai.StreamEvent{Type: "content", Content: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			logger.Error("[AI] Chat stream failed", "err", err)
			select {
			case contentChan <- ai.StreamEvent{Type: "error", Err: err}:
			case <-ctx.Done():
			}
			return
		}

		c.Record(int(acc.Usage.PromptTokens), int(acc.Usage.CompletionTokens), time.Since(start).Milliseconds())
	}()

	return contentChan, nil
}
