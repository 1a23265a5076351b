package queue

import (
	"context"
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// Retries reads the x-retries header of a delivery.
func Retries(msg amqp091.Delivery) int {
	switch v := msg.Headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleFailure routes a failed delivery. Malformed messages and messages
// retried MaxRetries times go to <queue>_dlq; anything else is republished
// to <queue>_retry with x-retries incremented. The original delivery is
// acked once the copy is published, and requeued if publishing fails.
func HandleFailure(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := Retries(msg)
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	target := queueName + "_retry"
	if retries >= MaxRetries || errors.Is(cause, common.ErrMalformedInput) {
		target = queueName + "_dlq"
		headers["x-error"] = cause.Error()
		logger.Warn("[Queue] Dead-lettering message", "queue", queueName, "retries", retries, "err", cause)
	} else {
		headers["x-retries"] = int32(retries + 1)
		logger.Info("[Queue] Scheduling retry", "queue", queueName, "attempt", retries+1)
	}

	err := ch.PublishWithContext(ctx, "", target, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		logger.Error("[Queue] Failed to publish failed message", "target", target, "err", err)
		if nerr := msg.Nack(false, true); nerr != nil {
			logger.Error("[Queue] Failed to nack message", "err", nerr)
		}
		return
	}
	if aerr := msg.Ack(false); aerr != nil {
		logger.Error("[Queue] Failed to ack message", "err", aerr)
	}
}

// RecoverStaleRuns marks runs still "running" after olderThan as failed.
// A worker that died mid-run leaves such rows behind; the message itself is
// redelivered by the broker.
func RecoverStaleRuns(ctx context.Context, runs store.RunStore, olderThan time.Duration) (int, error) {
	list, err := runs.ListRuns(ctx, 200)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan)
	recovered := 0
	for _, run := range list {
		if run.Status != store.RunRunning || run.StartedAt.After(cutoff) {
			continue
		}
		now := time.Now().UTC()
		run.Status = store.RunFailed
		run.Error = "abandoned by worker"
		run.FinishedAt = &now
		if err := runs.RecordRun(ctx, run); err != nil {
			logger.Error("[Queue] Failed to close stale run", "run_id", run.ID, "err", err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		logger.Info("[Queue] Closed stale pipeline runs", "count", recovered)
	} else {
		logger.Debug("[Queue] No stale pipeline runs found")
	}
	return recovered, nil
}
