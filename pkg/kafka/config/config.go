package kafka_config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all Kafka configuration
type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"
	ProducerAsync        bool

	ConsumerStartOffset       int64 // -1 = newest, -2 = oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int

	TopicBookingEvents  string
	TopicReminderEvents string
	TopicPaymentEvents  string
	TopicNotifications  string
	DLQSuffix           string
	CreditsGroupID      string

	EnableMiddleware bool
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(EnvKafkaBrokers, DefaultKafkaBrokers)

	v.SetDefault(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts)
	v.SetDefault(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout)
	v.SetDefault(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks)
	v.SetDefault(EnvKafkaProducerCompression, DefaultProducerCompression)
	v.SetDefault(EnvKafkaProducerAsync, DefaultProducerAsync)

	v.SetDefault(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)
	v.SetDefault(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes)
	v.SetDefault(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes)
	v.SetDefault(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait)
	v.SetDefault(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval)
	v.SetDefault(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval)
	v.SetDefault(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout)
	v.SetDefault(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout)
	v.SetDefault(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries)

	v.SetDefault(EnvKafkaTopicBookingEvents, DefaultTopicBookingEvents)
	v.SetDefault(EnvKafkaTopicReminderEvents, DefaultTopicReminderEvents)
	v.SetDefault(EnvKafkaTopicPaymentEvents, DefaultTopicPaymentEvents)
	v.SetDefault(EnvKafkaTopicNotifications, DefaultTopicNotifications)
	v.SetDefault(EnvKafkaDLQSuffix, DefaultDLQSuffix)
	v.SetDefault(EnvKafkaCreditsGroupID, DefaultCreditsGroupID)

	v.SetDefault(EnvKafkaEnableMiddleware, DefaultEnableMiddleware)
}

// FromViper builds the Kafka config from an already prepared viper instance.
func FromViper(v *viper.Viper) *Config {
	brokers := strings.Split(v.GetString(EnvKafkaBrokers), ",")
	for i, broker := range brokers {
		brokers[i] = strings.TrimSpace(broker)
	}

	return &Config{
		Brokers: brokers,

		ProducerMaxAttempts:  v.GetInt(EnvKafkaProducerMaxAttempts),
		ProducerBatchTimeout: v.GetDuration(EnvKafkaProducerBatchTimeout),
		ProducerRequireAcks:  v.GetInt(EnvKafkaProducerRequireAcks),
		ProducerCompression:  v.GetString(EnvKafkaProducerCompression),
		ProducerAsync:        v.GetBool(EnvKafkaProducerAsync),

		ConsumerStartOffset:       v.GetInt64(EnvKafkaConsumerStartOffset),
		ConsumerMinBytes:          v.GetInt(EnvKafkaConsumerMinBytes),
		ConsumerMaxBytes:          v.GetInt(EnvKafkaConsumerMaxBytes),
		ConsumerMaxWait:           v.GetDuration(EnvKafkaConsumerMaxWait),
		ConsumerCommitInterval:    v.GetDuration(EnvKafkaConsumerCommitInterval),
		ConsumerHeartbeatInterval: v.GetDuration(EnvKafkaConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    v.GetDuration(EnvKafkaConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  v.GetDuration(EnvKafkaConsumerRebalanceTimeout),
		ConsumerMaxRetries:        v.GetInt(EnvKafkaConsumerMaxRetries),

		TopicBookingEvents:  v.GetString(EnvKafkaTopicBookingEvents),
		TopicReminderEvents: v.GetString(EnvKafkaTopicReminderEvents),
		TopicPaymentEvents:  v.GetString(EnvKafkaTopicPaymentEvents),
		TopicNotifications:  v.GetString(EnvKafkaTopicNotifications),
		DLQSuffix:           v.GetString(EnvKafkaDLQSuffix),
		CreditsGroupID:      v.GetString(EnvKafkaCreditsGroupID),

		EnableMiddleware: v.GetBool(EnvKafkaEnableMiddleware),
	}
}

// DLQ returns the dead letter topic for topic, or "" when DLQs are disabled.
func (cfg *Config) DLQ(topic string) string {
	if cfg.DLQSuffix == "" {
		return ""
	}
	return topic + cfg.DLQSuffix
}

// NotificationTopic is the outbound topic for one channel, e.g. "notifications.outbound.sms".
func (cfg *Config) NotificationTopic(channel string) string {
	return cfg.TopicNotifications + "." + channel
}

// Validate validates the Kafka configuration
func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errors = append(errors, fmt.Sprintf("Broker %d cannot be empty", i))
		}
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}

	validCompressions := map[string]bool{
		"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true,
	}
	if !validCompressions[cfg.ProducerCompression] {
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}

	validAcks := map[int]bool{-1: true, 0: true, 1: true}
	if !validAcks[cfg.ProducerRequireAcks] {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if cfg.ConsumerStartOffset != -1 && cfg.ConsumerStartOffset != -2 && cfg.ConsumerStartOffset < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerStartOffset must be -1 (newest), -2 (oldest), or >= 0, got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMinBytes <= 0 || cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		errors = append(errors, fmt.Sprintf("ConsumerMinBytes (%d) must be positive and not above ConsumerMaxBytes (%d)", cfg.ConsumerMinBytes, cfg.ConsumerMaxBytes))
	}
	if cfg.ConsumerMaxWait <= 0 || cfg.ConsumerCommitInterval <= 0 || cfg.ConsumerHeartbeatInterval <= 0 ||
		cfg.ConsumerSessionTimeout <= 0 || cfg.ConsumerRebalanceTimeout <= 0 {
		errors = append(errors, "Consumer timings (max wait, commit, heartbeat, session, rebalance) must be positive")
	}
	if cfg.ConsumerMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	for name, topic := range map[string]string{
		"TopicBookingEvents":  cfg.TopicBookingEvents,
		"TopicReminderEvents": cfg.TopicReminderEvents,
		"TopicPaymentEvents":  cfg.TopicPaymentEvents,
		"TopicNotifications":  cfg.TopicNotifications,
	} {
		if topic == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", name))
		}
	}

	if len(errors) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// LogConfiguration logs the Kafka configuration
func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"topic_booking_events", cfg.TopicBookingEvents,
		"topic_reminder_events", cfg.TopicReminderEvents,
		"topic_payment_events", cfg.TopicPaymentEvents,
		"topic_notifications", cfg.TopicNotifications,
		"credits_group_id", cfg.CreditsGroupID,
	)
}
