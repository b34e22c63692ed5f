package app

import (
	"fmt"
	"slotbook/pkg/kafka"
	kafkamiddleware "slotbook/pkg/kafka/middleware"
)

func (a *Application) brokerMetrics() *kafkamiddleware.Metrics {
	if a.kafkaMetrics == nil {
		a.kafkaMetrics = kafkamiddleware.NewMetrics(a.registry)
	}
	return a.kafkaMetrics
}

// EventPublisher returns a producer for topic, or a NopPublisher when events
// are disabled. The producer is closed on shutdown.
func (a *Application) EventPublisher(topic string) (kafka.EventPublisher, error) {
	if !a.cfg.EventsEnabled {
		a.cfg.Log.Info("Event publishing disabled", "topic", topic)
		return kafka.NopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(a.cfg.Kafka, topic, a.cfg.Kafka.DLQ(topic), a.cfg.ServiceName, a.cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create producer for %s: %w", topic, err)
	}
	if a.cfg.Kafka.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(a.cfg.Log))
		producer.Use(a.brokerMetrics().ProducerMiddleware())
	}
	a.OnShutdown(producer.Close)
	return producer, nil
}

// AddConsumer starts a consumer for topic as a background runner.
func (a *Application) AddConsumer(topic, groupID string, handler kafka.MessageHandler) error {
	consumer, err := kafka.NewConsumer(a.cfg.Kafka, topic, groupID, handler, a.cfg.Log)
	if err != nil {
		return fmt.Errorf("create consumer for %s: %w", topic, err)
	}
	if a.cfg.Kafka.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(a.cfg.Log))
		consumer.Use(a.brokerMetrics().ConsumerMiddleware())
	}
	a.AddRunner("consumer:"+topic, consumer.Start)
	a.OnShutdown(consumer.Close)
	return nil
}
