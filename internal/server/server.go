package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kwenta-ph/kwenta/backend/internal/metrics"
	"github.com/kwenta-ph/kwenta/backend/internal/queue"
	mid "github.com/kwenta-ph/kwenta/backend/internal/server/middleware"
	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/internal/storage"
	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/rag"
	pgstore "github.com/kwenta-ph/kwenta/backend/pkg/store/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App, limits Limits) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	if app.Metrics != nil {
		e.Use(mid.Metrics(app.Metrics))
	}
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))

	RegisterRoutes(e, app, limits)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := setup.OpenStores(ctx)
	if err != nil {
		logger.Fatal("Failed to open graph store", "err", err)
	}
	defer stores.Close(context.Background())

	if stores.Pool != nil && util.GetEnvBool("RUN_MIGRATIONS", false) {
		source := util.GetEnvString("MIGRATIONS_PATH", "file://migrations")
		if err := pgstore.Migrate(util.DatabaseURL(), source); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
	}

	aiClient, err := setup.AIClient()
	if err != nil {
		logger.Fatal("Failed to create AI client", "err", err)
	}

	collector := metrics.NewCollector()
	params := setup.DetectParams(collector)

	app := &mid.App{
		Store:        stores.Graph,
		Vectors:      stores.Vectors,
		AI:           aiClient,
		Metrics:      collector,
		Detect:       params,
		Backend:      stores.Backend,
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
	}

	if aiClient != nil {
		var flags rag.FlagLister = detect.LiveFlags{Reader: stores.Graph, Params: params}
		if util.GetEnvString("CHAT_FLAG_SOURCE", "stored") == "stored" {
			flags = stores.Graph
		}
		app.Chat = rag.New(rag.Params{
			Reader:      stores.Graph,
			Client:      aiClient,
			Flags:       flags,
			Vectors:     stores.Vectors,
			TokenBudget: util.GetEnvInt("CHAT_TOKEN_BUDGET", rag.DefaultTokenBudget),
		})
	} else {
		logger.Warn("Chat disabled, no AI adapter configured")
	}

	if util.GetEnvBool("QUEUE_ENABLED", true) {
		if conn, err := queue.Init(); err != nil {
			logger.Warn("Work queue unavailable, pipeline writes disabled", "err", err)
		} else {
			defer conn.Close()
			ch, err := conn.Channel()
			if err != nil {
				logger.Fatal("Failed to open channel", "err", err)
			}
			if err := queue.SetupQueues(ch, queue.Queues); err != nil {
				logger.Fatal("Failed to declare queues", "err", err)
			}
			app.Queue = ch
		}
	}

	if util.GetEnvBool("S3_ENABLED", true) {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Warn("Object storage unavailable, uploads disabled", "err", err)
		} else {
			app.S3 = client
		}
	}

	e := New(app, Limits{
		GraphPerMinute: util.GetEnvInt("RATE_LIMIT_GRAPH_PER_MIN", 100),
		ChatPerMinute:  util.GetEnvInt("RATE_LIMIT_CHAT_PER_MIN", 10),
	})

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port, "backend", stores.Backend)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
