package kafka

import (
	"context"
	"fmt"
	"slotbook/pkg/logger"
	"sync"
	"time"

	kafka_config "slotbook/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer     Writer
	dlqWriter  Writer
	topic      string
	dlqTopic   string
	source     string
	log        *logger.Logger
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

func compression(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}

func requiredAcks(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func newWriter(cfg *kafka_config.Config, topic string, log *logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: requiredAcks(cfg.ProducerRequireAcks),
		Compression:  compression(cfg.ProducerCompression),
		MaxAttempts:  cfg.ProducerMaxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		Async:        cfg.ProducerAsync,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	}
}

// NewProducer writes to topic, diverting failed writes to dlqTopic when set.
// source names the publishing service in every message.
func NewProducer(cfg *kafka_config.Config, topic, dlqTopic, source string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	var dlq Writer
	if dlqTopic != "" {
		w := newWriter(cfg, dlqTopic, log)
		w.RequiredAcks = kafka.RequireAll
		w.Async = false
		dlq = w
	}

	return NewProducerWithWriter(newWriter(cfg, topic, log), dlq, topic, dlqTopic, source, log), nil
}

// NewProducerWithWriter wires explicit writers, e.g. in-memory fakes.
func NewProducerWithWriter(writer, dlqWriter Writer, topic, dlqTopic, source string, log *logger.Logger) *Producer {
	return &Producer{
		writer:    writer,
		dlqWriter: dlqWriter,
		topic:     topic,
		dlqTopic:  dlqTopic,
		source:    source,
		log:       log,
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Topic() string {
	return p.topic
}

// PublishEvent encodes payload as JSON and publishes it under key.
func (p *Producer) PublishEvent(ctx context.Context, key, eventType string, payload any) error {
	msg, err := NewMessage().
		WithKey(key).
		WithEventType(eventType).
		WithSource(p.source).
		WithValue(payload).
		Build()
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed := p.closed
	middleware := p.middleware
	p.mu.RUnlock()

	if closed {
		return ErrProducerClosed
	}
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}
	msg.Topic = p.topic

	handler := p.publishInternal
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	return handler(ctx, msg)
}

func (p *Producer) publishInternal(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	if err == nil {
		return nil
	}

	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msg, err); dlqErr != nil {
			return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
		}
		p.log.Warn("Message diverted to DLQ", "topic", p.topic, "dlq_topic", p.dlqTopic, "key", msg.Key, "error", err)
	}
	return err
}

func (p *Producer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = p.topic
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)

	msg.Headers = headers
	msg.Timestamp = time.Now().UTC()

	return p.dlqWriter.WriteMessages(context.WithoutCancel(ctx), toKafkaMessage(msg))
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
