package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// PipelineQueue carries pipeline jobs. It has a <name>_retry queue that
// dead-letters back after retryDelay and a <name>_dlq for messages that
// exhausted maxRetries.
const PipelineQueue = "pipeline_queue"

const (
	retryDelay    = 10 * time.Second
	maxRetries    = 10
	retriesHeader = "x-retries"
)

// Publisher is the part of an AMQP channel used to publish.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Init dials the broker at url.
func Init(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue in names together with its retry and
// dead-letter queues.
func SetupQueues(ch *amqp091.Channel, names []string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		if _, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay / time.Millisecond),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", retryName, err)
		}
		logger.Debug("[Queue] Declared queue", "queue", name)
	}
	return nil
}

// PublishFIFO publishes a persistent message to queueName through the
// default exchange.
func PublishFIFO(ctx context.Context, pub Publisher, queueName string, data []byte) error {
	return pub.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
