package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kwenta-ph/kwenta/backend/internal/queue"
	"github.com/kwenta-ph/kwenta/backend/internal/server/util"
	"github.com/kwenta-ph/kwenta/backend/internal/storage"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
	"github.com/kwenta-ph/kwenta/backend/pkg/graph"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/quality"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const detectSource = "detect"

var uploadExtensions = []string{".csv", ".xlsx", ".jsonl"}

type sourceStatus struct {
	Source     string          `json:"source"`
	Status     string          `json:"status"`
	Records    int             `json:"record_count"`
	LastRunID  string          `json:"last_run_id,omitempty"`
	LastUpdate *time.Time      `json:"last_updated,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type pipelineStatus struct {
	Sources []sourceStatus      `json:"sources"`
	Runs    []store.PipelineRun `json:"runs"`
}

type enqueued struct {
	CorrelationID string       `json:"correlation_id"`
	Queue         string       `json:"queue"`
	Files         []queue.File `json:"files,omitempty"`
}

// PipelineStatusHandler reports the latest run of every source plus the
// recent run history.
func PipelineStatusHandler(c echo.Context) error {
	type statusParams struct {
		Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
	}

	start := time.Now()
	params := new(statusParams)
	if err := bind(c, params); err != nil {
		return util.FromError(c, err)
	}

	runs, err := app(c).Store.ListRuns(c.Request().Context(), util.Clamp(params.Limit, 50, 1, 200))
	if err != nil {
		return util.FromError(c, err)
	}

	names := make([]string, 0, len(graph.Sources)+1)
	for _, s := range graph.Sources {
		names = append(names, string(s))
	}
	names = append(names, detectSource)

	latest := make(map[string]store.PipelineRun)
	for _, r := range runs {
		if _, seen := latest[r.Source]; !seen {
			latest[r.Source] = r
		}
	}
	sources := make([]sourceStatus, 0, len(names))
	for _, name := range names {
		st := sourceStatus{Source: name, Status: "unknown"}
		if r, ok := latest[name]; ok {
			st.Status = string(r.Status)
			st.Records = r.Records
			st.LastRunID = r.ID
			st.LastUpdate = r.FinishedAt
			if st.LastUpdate == nil {
				at := r.StartedAt
				st.LastUpdate = &at
			}
			st.Error = r.Error
		}
		sources = append(sources, st)
	}

	meta := newMeta(c, start)
	meta.Count = len(runs)
	return ok(c, pipelineStatus{Sources: sources, Runs: list(runs)}, meta)
}

func QualityHandler(c echo.Context) error {
	start := time.Now()
	report, err := quality.Check(c.Request().Context(), app(c).Store)
	if err != nil {
		return util.FromError(c, err)
	}
	meta := newMeta(c, start)
	meta.Count = report.Summary.TotalChecks
	return ok(c, report, meta)
}

// EnqueueIngestHandler queues an ingest of files already in object storage.
func EnqueueIngestHandler(c echo.Context) error {
	start := time.Now()
	msg := new(queue.IngestMessage)
	if err := bind(c, msg); err != nil {
		return util.FromError(c, err)
	}
	source, err := graph.ParseSource(msg.Source)
	if err != nil {
		return util.FromError(c, err)
	}
	msg.Source = string(source)

	if err := publish(c, queue.IngestQueue, msg, &msg.CorrelationID, &msg.RequestedAt); err != nil {
		return queueError(c, err)
	}
	return respond(c, http.StatusAccepted, enqueued{
		CorrelationID: msg.CorrelationID,
		Queue:         queue.IngestQueue,
		Files:         msg.Files,
	}, newMeta(c, start))
}

// EnqueueDetectHandler queues a red-flag recompute. An empty body runs every
// detector.
func EnqueueDetectHandler(c echo.Context) error {
	start := time.Now()
	msg := new(queue.DetectMessage)
	if c.Request().ContentLength != 0 {
		if err := bind(c, msg); err != nil {
			return util.FromError(c, err)
		}
	}
	for _, name := range msg.Detectors {
		if !slices.Contains(detect.Names(), name) {
			return util.FromError(c, fmt.Errorf("%w: unknown detector %q", common.ErrMalformedInput, name))
		}
	}

	if err := publish(c, queue.DetectQueue, msg, &msg.CorrelationID, &msg.RequestedAt); err != nil {
		return queueError(c, err)
	}
	return respond(c, http.StatusAccepted, enqueued{
		CorrelationID: msg.CorrelationID,
		Queue:         queue.DetectQueue,
	}, newMeta(c, start))
}

// UploadFilesHandler stores uploaded exports of one source and queues their
// ingest. Uploaded objects are removed again if the message cannot be
// queued.
func UploadFilesHandler(c echo.Context) error {
	start := time.Now()
	a := app(c)
	if a.S3 == nil || a.Queue == nil {
		return util.Error(c, http.StatusServiceUnavailable, util.CodeServiceUnavailable, "File uploads are not configured on this server.")
	}

	source, err := graph.ParseSource(c.FormValue("source"))
	if err != nil {
		return util.FromError(c, err)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return util.Error(c, http.StatusBadRequest, util.CodeBadRequest, "Invalid request body")
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return util.Error(c, http.StatusBadRequest, util.CodeBadRequest, "No files provided")
	}
	for _, file := range uploads {
		if !slices.Contains(uploadExtensions, strings.ToLower(path.Ext(file.Filename))) {
			return util.Error(c, http.StatusBadRequest, util.CodeBadRequest,
				fmt.Sprintf("Unsupported file %q, expected one of %s", file.Filename, strings.Join(uploadExtensions, ", ")))
		}
	}

	ctx := c.Request().Context()
	sheet := c.FormValue("sheet")
	msg := &queue.IngestMessage{Source: string(source)}
	for _, file := range uploads {
		src, err := file.Open()
		if err != nil {
			removeUploads(c, msg.Files)
			return util.Error(c, http.StatusBadRequest, util.CodeBadRequest, "Could not open file")
		}
		fID, err := gonanoid.New()
		if err != nil {
			src.Close()
			removeUploads(c, msg.Files)
			return util.FromError(c, err)
		}
		key, err := storage.PutFile(ctx, a.S3, storage.SourceKey(string(source), file.Filename, fID, start), src)
		src.Close()
		if err != nil {
			removeUploads(c, msg.Files)
			return util.FromError(c, err)
		}
		msg.Files = append(msg.Files, queue.File{Key: key, Name: file.Filename, Sheet: sheet})
	}
	logger.Info("[Server] Uploaded source files", "source", source, "files", len(msg.Files))

	if err := publish(c, queue.IngestQueue, msg, &msg.CorrelationID, &msg.RequestedAt); err != nil {
		removeUploads(c, msg.Files)
		return queueError(c, err)
	}
	return respond(c, http.StatusAccepted, enqueued{
		CorrelationID: msg.CorrelationID,
		Queue:         queue.IngestQueue,
		Files:         msg.Files,
	}, newMeta(c, start))
}

var errNoQueue = errors.New("work queue not configured")

// publish stamps the message with a correlation id and sends it.
func publish(c echo.Context, queueName string, msg any, correlationID *string, requestedAt *time.Time) error {
	a := app(c)
	if a.Queue == nil {
		return errNoQueue
	}
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	*correlationID = id
	*requestedAt = time.Now().UTC()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := queue.PublishFIFO(c.Request().Context(), a.Queue, queueName, body); err != nil {
		logger.Error("[Server] Failed to enqueue message", "queue", queueName, "err", err)
		return err
	}
	logger.Info("[Server] Enqueued message", "queue", queueName, "correlation_id", id)
	return nil
}

func queueError(c echo.Context, err error) error {
	if errors.Is(err, errNoQueue) {
		return util.Error(c, http.StatusServiceUnavailable, util.CodeServiceUnavailable, "The work queue is not configured on this server.")
	}
	return util.Error(c, http.StatusServiceUnavailable, util.CodeServiceUnavailable, "The work queue is unavailable.")
}

func removeUploads(c echo.Context, files []queue.File) {
	for _, f := range files {
		if err := storage.DeleteFile(c.Request().Context(), app(c).S3, f.Key); err != nil {
			logger.Warn("[Server] Failed to remove upload", "key", f.Key, "err", err)
		}
	}
}
