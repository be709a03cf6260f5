package queue

import (
	"context"
	"errors"
	"time"

	"github.com/dslunde/Glyph-sub000/internal/metrics"
	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// Processor handles one message body.
type Processor interface {
	Process(ctx context.Context, body []byte) error
}

// Consumer processes deliveries of one queue, one at a time.
type Consumer struct {
	queue     string
	processor Processor
	pub       Publisher
}

// NewConsumer creates a Consumer for queue. Failed messages are published
// to the retry and dead-letter queues through pub.
func NewConsumer(queue string, processor Processor, pub Publisher) *Consumer {
	return &Consumer{queue: queue, processor: processor, pub: pub}
}

// Run handles deliveries until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", c.queue)
			return
		case msg, ok := <-deliveries:
			if !ok {
				logger.Info("[Queue] Delivery channel closed", "queue", c.queue)
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	logger.Info("[Queue] Received message", "queue", c.queue)

	err := c.processor.Process(ctx, msg.Body)
	switch {
	case err == nil:
		if err := msg.Ack(false); err != nil {
			logger.Error("[Queue] Failed to ack message", "err", err)
		}
		metrics.QueueMessage("ack")
		logger.Info("[Queue] Message processed successfully", "queue", c.queue)
	case errors.Is(err, ErrMalformedJob):
		logger.Error("[Queue] Malformed message", "queue", c.queue, "err", err)
		c.deadLetter(ctx, msg)
	default:
		logger.Error("[Queue] Error processing message", "queue", c.queue, "err", err)
		c.handleProcessingError(ctx, msg)
	}

	logger.Info("[Queue] Processing time", "duration", util.FormatHMS(time.Since(start).Milliseconds()))
}

// handleProcessingError republishes msg to the retry queue with an
// incremented retry count, or to the dead-letter queue once the count
// reaches maxRetries.
func (c *Consumer) handleProcessingError(ctx context.Context, msg amqp091.Delivery) {
	retries := retryCount(msg.Headers)
	if retries >= maxRetries {
		c.deadLetter(ctx, msg)
		return
	}

	retryName := c.queue + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retriesHeader] = int32(retries + 1)

	if err := c.pub.PublishWithContext(ctx, "", retryName, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	}); err != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
	metrics.QueueMessage("retry")
}

func (c *Consumer) deadLetter(ctx context.Context, msg amqp091.Delivery) {
	dlqName := c.queue + "_dlq"
	logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName)
	if err := c.pub.PublishWithContext(ctx, "", dlqName, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      msg.Headers,
		DeliveryMode: amqp091.Persistent,
	}); err != nil {
		logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
	metrics.QueueMessage("dlq")
}

func retryCount(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
