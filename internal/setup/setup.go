// Package setup builds the shared runtime pieces (logger, graph store, model
// client, ingest client, detector parameters) from the environment for the
// server, the worker and the CLI.
package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	oai "github.com/kwenta-ph/kwenta/backend/pkg/ai/ollama"
	gai "github.com/kwenta-ph/kwenta/backend/pkg/ai/openai"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
	"github.com/kwenta-ph/kwenta/backend/pkg/graph"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger/console"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/breaker"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/memory"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/neo4j"
	pgstore "github.com/kwenta-ph/kwenta/backend/pkg/store/pgx"
)

// Logger registers the console backend configured by LOG_LEVEL and LOG_JSON.
func Logger(prefix string) {
	level := util.GetEnvString("LOG_LEVEL", "info")
	if util.GetEnvBool("DEBUG", false) {
		level = "debug"
	}
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Level:  level,
		Prefix: prefix,
		JSON:   util.GetEnvBool("LOG_JSON", false),
	}))
}

// DebugLogger registers the console backend at debug level.
func DebugLogger(prefix string) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Level:  "debug",
		Prefix: prefix,
		JSON:   util.GetEnvBool("LOG_JSON", false),
	}))
}

// Stores is an opened graph backend. Vectors is nil when the backend keeps
// no embeddings; Pool is nil unless the backend is Postgres.
type Stores struct {
	Graph   store.GraphStore
	Vectors store.VectorStore
	Pool    *pgxpool.Pool
	Backend string
}

func (s *Stores) Close(ctx context.Context) {
	if err := s.Graph.Close(ctx); err != nil {
		logger.Warn("[Setup] Closing graph store failed", "err", err)
	}
}

// OpenStores connects the backend named by GRAPH_BACKEND (postgres, neo4j or
// memory) and wraps it in a circuit breaker.
func OpenStores(ctx context.Context) (*Stores, error) {
	backend := strings.ToLower(util.GetEnvString("GRAPH_BACKEND", "postgres"))
	batch := util.GetEnvInt("GRAPH_BATCH_SIZE", store.DefaultBatchSize)

	var (
		next store.GraphStore
		pool *pgxpool.Pool
	)
	switch backend {
	case "postgres", "pg", "pgx":
		backend = "postgres"
		p, err := pgstore.Connect(ctx, util.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pool = p
		next = pgstore.New(p, pgstore.WithBatchSize(batch))
	case "neo4j":
		s, err := neo4j.Connect(ctx,
			util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
			util.GetEnvString("NEO4J_USER", "neo4j"),
			util.GetEnv("NEO4J_PASSWORD"),
			neo4j.WithBatchSize(batch),
			neo4j.WithDatabase(util.GetEnv("NEO4J_DATABASE")),
		)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		next = s
	case "memory":
		next = memory.New()
	default:
		return nil, fmt.Errorf("unknown GRAPH_BACKEND %q", backend)
	}

	cfg := breaker.DefaultConfig(backend)
	cfg.Retries = util.GetEnvInt("STORE_RETRIES", cfg.Retries)
	guarded := breaker.New(next, cfg)

	out := &Stores{Graph: guarded, Pool: pool, Backend: backend}
	if _, ok := next.(store.VectorStore); ok {
		out.Vectors = guarded
	}
	logger.Info("[Setup] Graph store ready", "backend", backend)
	return out, nil
}

// AIClient builds the model client selected by AI_ADAPTER. "none" disables
// chat and returns a nil client.
func AIClient() (ai.GraphAIClient, error) {
	timeout := util.GetEnvSeconds("AI_TIMEOUT_SECONDS", 0)
	dim := util.GetEnvInt("AI_EMBED_DIM", ai.DefaultEmbeddingDim)
	parallel := int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4))

	switch util.GetEnv("AI_ADAPTER") {
	case "none":
		return nil, nil
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:       util.GetEnvString("AI_CHAT_MODEL", "llama3.1"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnvString("AI_EMBED_MODEL", "nomic-embed-text"),
			EmbeddingDim:    dim,

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			Timeout:               timeout,
			MaxConcurrentRequests: parallel,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return client, nil
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:       util.GetEnvString("AI_CHAT_MODEL", "gpt-4o-mini"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnvString("AI_EMBED_MODEL", "text-embedding-3-small"),
			EmbeddingDim:    dim,

			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

			Timeout:                 timeout,
			MaxConcurrentEmbeddings: parallel,
		}), nil
	}
}

// GraphClient builds the ingest client from GRAPH_BATCH_SIZE and the
// RESOLVE_* thresholds.
func GraphClient(obs graph.Observer) (*graph.GraphClient, error) {
	return graph.NewGraphClient(graph.NewGraphClientParams{
		BatchSize:       util.GetEnvInt("GRAPH_BATCH_SIZE", store.DefaultBatchSize),
		ParallelWrites:  util.GetEnvInt("GRAPH_PARALLEL_WRITES", 2),
		MaxRetries:      util.GetEnvInt("GRAPH_WRITE_RETRIES", 3),
		AutoThreshold:   util.GetEnvNumeric("RESOLVE_AUTO_THRESHOLD", 0.92),
		ReviewThreshold: util.GetEnvNumeric("RESOLVE_REVIEW_THRESHOLD", 0.85),
		Observer:        obs,
	})
}

// DetectParams returns the detector defaults with the DETECT_* overrides.
func DetectParams(obs detect.Observer) detect.Params {
	p := detect.DefaultParams()
	p.Concurrency = util.GetEnvInt("DETECT_CONCURRENCY", p.Concurrency)
	p.Timeout = util.GetEnvSeconds("DETECT_TIMEOUT_SECONDS", p.Timeout)
	p.SingleBidderMin = util.GetEnvInt("DETECT_SINGLE_BIDDER_MIN", p.SingleBidderMin)
	p.SplitThreshold = util.GetEnvNumeric("DETECT_SPLIT_THRESHOLD", p.SplitThreshold)
	p.HHIThreshold = util.GetEnvNumeric("DETECT_HHI_THRESHOLD", p.HHIThreshold)
	p.TimingDays = util.GetEnvInt("DETECT_TIMING_DAYS", p.TimingDays)
	p.Observer = obs
	return p
}
