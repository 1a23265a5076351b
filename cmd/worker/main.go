package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kwenta-ph/kwenta/backend/internal/metrics"
	"github.com/kwenta-ph/kwenta/backend/internal/queue"
	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/internal/storage"
	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/leaselock"
	s3loader "github.com/kwenta-ph/kwenta/backend/pkg/loader/s3"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader/tabular"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

func main() {
	util.LoadEnv()
	setup.Logger("worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}

	stores, err := setup.OpenStores(ctx)
	if err != nil {
		logger.Fatal("Failed to open graph store", "err", err)
	}
	defer stores.Close(context.Background())

	collector := metrics.NewCollector()
	if port := util.GetEnv("WORKER_METRICS_PORT"); port != "" {
		go func() {
			if err := http.ListenAndServe(":"+port, collector.Handler()); err != nil {
				logger.Error("Metrics listener stopped", "err", err)
			}
		}()
	}
	graphClient, err := setup.GraphClient(collector)
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	processor := &queue.Processor{
		Store:   stores.Graph,
		Graph:   graphClient,
		Files:   tabular.NewRecordLoader(s3loader.NewS3FileLoaderWithClient(storage.Bucket(), client)),
		Params:  setup.DetectParams(collector),
		Vectors: stores.Vectors,
	}
	if stores.Pool != nil {
		processor.Locker = leaselock.New(stores.Pool)
	}
	if stores.Vectors != nil && util.GetEnvBool("EMBED_ON_INGEST", true) {
		aiClient, err := setup.AIClient()
		if err != nil {
			logger.Fatal("Could not create AI client", "err", err)
		}
		processor.AI = aiClient
	}

	stale := util.GetEnvSeconds("STALE_RUN_SECONDS", time.Hour)
	if n, err := queue.RecoverStaleRuns(ctx, stores.Graph, stale); err != nil {
		logger.Warn("Failed to recover stale runs", "err", err)
	} else if n > 0 {
		logger.Info("Marked stale runs as failed", "runs", n)
	}

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	logger.Info("Listening for messages", "queues", queue.Queues)

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName, "retries", queue.Retries(qm.msg))

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if err := processor.Process(ctx, qm.queueName, qm.msg.Body); err != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", err)
					queue.HandleFailure(ctx, ch, qm.msg, qm.queueName, err)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				if processor.AI != nil {
					usage := processor.AI.GetMetrics()
					logger.Info(
						"AI Metrics",
						"input_tokens", usage.InputTokens,
						"total_tokens", usage.TotalTokens,
						"duration", clock(time.Duration(usage.DurationMs)*time.Millisecond),
					)
					processor.AI.ResetMetrics()
				}

				logger.Info("Processing time", "duration", clock(time.Since(startTime)))
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

// clock renders d as hh:mm:ss.
func clock(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
