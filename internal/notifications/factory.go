package notifications

import (
	"fmt"
	"slotbook/pkg/client"
	"slotbook/pkg/config"
	"slotbook/pkg/kafka"
)

// New builds the dispatcher selected by NotificationDriver.
func New(cfg *config.Config) (Dispatcher, error) {
	switch cfg.NotificationDriver {
	case config.NotificationDriverKafka:
		if cfg.Kafka == nil {
			return nil, fmt.Errorf("kafka notification driver requires kafka configuration")
		}
		publishers := make(map[config.Channel]kafka.EventPublisher, len(config.Channels))
		for _, channel := range config.Channels {
			topic := cfg.Kafka.NotificationTopic(string(channel))
			producer, err := kafka.NewProducer(cfg.Kafka, topic, cfg.Kafka.DLQ(topic), cfg.ServiceName, cfg.Log)
			if err != nil {
				for _, p := range publishers {
					_ = p.Close()
				}
				return nil, fmt.Errorf("create %s notification producer: %w", channel, err)
			}
			publishers[channel] = producer
		}
		return NewKafkaDispatcher(publishers), nil
	case config.NotificationDriverWebhook:
		httpClient := client.NewHttpClient(cfg.NotificationWebhookURL, cfg.ReminderDispatchTimeout)
		return NewWebhookDispatcher(httpClient, cfg.NotificationWebhookToken), nil
	default:
		return NewLogDispatcher(cfg.Log), nil
	}
}
