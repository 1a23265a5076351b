package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/internal/metrics"
	"github.com/kwenta-ph/kwenta/backend/internal/queue"
	"github.com/kwenta-ph/kwenta/backend/internal/storage"
	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
	"github.com/kwenta-ph/kwenta/backend/pkg/rag"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// App holds the dependencies shared by every handler. Queue, S3, AI and
// Vectors are optional; handlers that need a missing one answer 503.
type App struct {
	Store   store.GraphStore
	Vectors store.VectorStore
	AI      ai.GraphAIClient
	Chat    *rag.Engine
	Queue   queue.Publisher
	S3      storage.ObjectStore
	Metrics *metrics.Collector
	Detect  detect.Params

	// Backend names the graph backend in response metadata.
	Backend      string
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
