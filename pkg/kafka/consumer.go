package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slotbook/pkg/logger"
	"sync"
	"time"

	kafka_config "slotbook/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
)

// Reader is the part of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader       Reader
	dlqWriter    Writer
	topic        string
	groupID      string
	maxRetries   int
	retryBackoff time.Duration
	handler      MessageHandler
	middleware   []ConsumerMiddleware
	log          *logger.Logger
	closed       bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic, groupID string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka reader error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	})

	var dlq Writer
	if dlqTopic := cfg.DLQ(topic); dlqTopic != "" {
		w := newWriter(cfg, dlqTopic, log)
		w.RequiredAcks = kafka.RequireAll
		w.Async = false
		dlq = w
	}

	c := NewConsumerWithReader(reader, dlq, topic, groupID, cfg.ConsumerMaxRetries, handler, log)
	return c, nil
}

// NewConsumerWithReader wires an explicit reader and DLQ writer.
func NewConsumerWithReader(reader Reader, dlqWriter Writer, topic, groupID string, maxRetries int, handler MessageHandler, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:       reader,
		dlqWriter:    dlqWriter,
		topic:        topic,
		groupID:      groupID,
		maxRetries:   maxRetries,
		retryBackoff: 200 * time.Millisecond,
		handler:      handler,
		log:          log.With("topic", topic, "group_id", groupID),
	}
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// SetRetryBackoff sets the base delay between handler retries. The delay grows linearly per attempt.
func (c *Consumer) SetRetryBackoff(d time.Duration) {
	c.retryBackoff = d
}

// Start consumes until ctx is cancelled, which is reported as a nil error.
// Every fetched message is committed once it was handled or dead-lettered.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	c.log.Info("Kafka consumer started")
	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info("Kafka consumer stopped")
				return nil
			}
			if c.isClosed() || errors.Is(err, io.EOF) {
				c.log.Info("Kafka consumer closed")
				return nil
			}
			c.log.Error("Failed to fetch message", "error", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		if err := c.process(ctx, fromKafkaMessage(kafkaMsg)); err != nil {
			c.log.Error("Message processing failed", "offset", kafkaMsg.Offset, "error", err)
		}

		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), kafkaMsg); err != nil {
			c.log.Error("Failed to commit offset", "offset", kafkaMsg.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	middleware := c.middleware
	c.mu.RUnlock()

	handler := c.handler
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

func (c *Consumer) process(ctx context.Context, msg Message) error {
	handler := c.chain()

	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		retries := msg.GetRetryCount()
		if ShouldRetry(err, retries, c.maxRetries) {
			msg.IncrementRetryCount()
			c.log.Warn("Retrying message", "attempt", retries+1, "max_retries", c.maxRetries, "error", err)
			if sleep(ctx, c.retryBackoff*time.Duration(retries+1)) {
				continue
			}
			return ctx.Err()
		}

		if c.dlqWriter == nil {
			return err
		}
		if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
			return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
		}
		c.log.Warn("Message sent to DLQ", "retries", retries, "error", err)
		return err
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	msg.Headers[HeaderOriginalTopic] = c.topic
	msg.Headers[HeaderDLQError] = originalErr.Error()
	msg.Headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	msg.Headers[HeaderDLQGroup] = c.groupID
	msg.Timestamp = time.Now().UTC()

	return c.dlqWriter.WriteMessages(context.WithoutCancel(ctx), toKafkaMessage(msg))
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Consumer) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close waits for the running Start loop to return before closing the reader.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.reader.Close()
	c.wg.Wait()

	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
