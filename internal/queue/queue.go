package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

const (
	IngestQueue = "ingest_queue"
	DetectQueue = "detect_queue"
)

// Queues lists the work queues the worker consumes.
var Queues = []string{IngestQueue, DetectQueue}

// MaxRetries is the number of redeliveries before a message is dead-lettered.
const MaxRetries = 10

func Init() (*amqp091.Connection, error) {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnvString("RABBITMQ_USER", "guest"),
		util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue with its <name>_dlq dead-letter queue and
// its <name>_retry queue. A retried message waits out RABBITMQ_RETRY_SECONDS
// in the retry queue before it is routed back to the work queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	retryTTL := util.GetEnvSeconds("RABBITMQ_RETRY_SECONDS", 10*time.Second)

	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			amqp091.Table{
				"x-message-ttl":             int32(retryTTL.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
	}
	logger.Debug("[Queue] Queues declared", "queues", queueNames)
	return nil
}

// Publisher is the part of *amqp091.Channel used to publish.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// PublishFIFO publishes a persistent JSON message on the default exchange.
func PublishFIFO(ctx context.Context, ch Publisher, queueName string, data []byte) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
