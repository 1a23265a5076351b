package openai

import (
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// GraphOpenAIClient implements ai.GraphAIClient against the OpenAI API or
// any OpenAI compatible endpoint. Chat and embeddings may use different
// endpoints and keys.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	ai.Meter

	chatModel       string
	extractionModel string
	embeddingModel  string
	embeddingDim    int
	timeout         time.Duration

	chatURL string

	embeddingLock *semaphore.Weighted

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for
// creating a new GraphOpenAIClient.
//
// ChatModel answers questions, ExtractionModel handles intent and entity
// extraction. An empty ExtractionModel falls back to ChatModel.
type NewGraphOpenAIClientParams struct {
	ChatModel       string
	ExtractionModel string
	EmbeddingModel  string
	EmbeddingDim    int

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	Timeout                 time.Duration
	MaxConcurrentEmbeddings int64
}

// NewGraphOpenAIClient creates a client from params.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel:      "gpt-4o",
//		EmbeddingModel: "text-embedding-3-small",
//		EmbeddingDim:   1536,
//		ChatKey:        os.Getenv("AI_CHAT_KEY"),
//		EmbeddingKey:   os.Getenv("AI_EMBED_KEY"),
//	})
func NewGraphOpenAIClient(params NewGraphOpenAIClientParams) *GraphOpenAIClient {
	if params.ExtractionModel == "" {
		params.ExtractionModel = params.ChatModel
	}
	if params.EmbeddingDim <= 0 {
		params.EmbeddingDim = ai.DefaultEmbeddingDim
	}
	if params.Timeout <= 0 {
		params.Timeout = 2 * time.Minute
	}
	if params.MaxConcurrentEmbeddings <= 0 {
		params.MaxConcurrentEmbeddings = 4
	}

	return &GraphOpenAIClient{
		chatModel:       params.ChatModel,
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,
		embeddingDim:    params.EmbeddingDim,
		timeout:         params.Timeout,

		chatURL: params.ChatURL,

		embeddingLock: semaphore.NewWeighted(params.MaxConcurrentEmbeddings),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
