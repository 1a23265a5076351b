package ollama

import (
	"net/http"
	"net/url"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements ai.GraphAIClient using locally hosted models
// served by Ollama.
type GraphOllamaClient struct {
	ai.Meter

	chatModel       string
	extractionModel string
	embeddingModel  string
	embeddingDim    int
	timeout         time.Duration

	reqLock *semaphore.Weighted

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	ChatModel       string
	ExtractionModel string
	EmbeddingModel  string
	EmbeddingDim    int

	BaseURL string
	ApiKey  string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient connects to the Ollama server at BaseURL, or the
// default local address when it is empty. ApiKey is sent as a bearer token
// for servers behind an authenticating proxy.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u = &url.URL{Scheme: "http", Host: "127.0.0.1:11434"}
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	if params.ExtractionModel == "" {
		params.ExtractionModel = params.ChatModel
	}
	if params.EmbeddingDim <= 0 {
		params.EmbeddingDim = ai.DefaultEmbeddingDim
	}
	if params.Timeout <= 0 {
		params.Timeout = 5 * time.Minute
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 2
	}

	return &GraphOllamaClient{
		chatModel:       params.ChatModel,
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,
		embeddingDim:    params.EmbeddingDim,
		timeout:         params.Timeout,

		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		Client: api.NewClient(u, httpClient),
	}, nil
}
