package kafka_config

import "time"

const (
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerAsync        = "KAFKA_PRODUCER_ASYNC"

	EnvKafkaConsumerStartOffset       = "KAFKA_CONSUMER_START_OFFSET"
	EnvKafkaConsumerMinBytes          = "KAFKA_CONSUMER_MIN_BYTES"
	EnvKafkaConsumerMaxBytes          = "KAFKA_CONSUMER_MAX_BYTES"
	EnvKafkaConsumerMaxWait           = "KAFKA_CONSUMER_MAX_WAIT"
	EnvKafkaConsumerCommitInterval    = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvKafkaConsumerHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	EnvKafkaConsumerSessionTimeout    = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvKafkaConsumerRebalanceTimeout  = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	EnvKafkaConsumerMaxRetries        = "KAFKA_CONSUMER_MAX_RETRIES"

	EnvKafkaTopicBookingEvents  = "KAFKA_TOPIC_BOOKING_EVENTS"
	EnvKafkaTopicReminderEvents = "KAFKA_TOPIC_REMINDER_EVENTS"
	EnvKafkaTopicPaymentEvents  = "KAFKA_TOPIC_PAYMENT_EVENTS"
	EnvKafkaTopicNotifications  = "KAFKA_TOPIC_NOTIFICATIONS"
	EnvKafkaDLQSuffix           = "KAFKA_DLQ_SUFFIX"
	EnvKafkaCreditsGroupID      = "KAFKA_CREDITS_GROUP_ID"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	DefaultConsumerStartOffset       = -1 // Newest messages
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = 1 * time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 3

	DefaultTopicBookingEvents  = "bookings.events"
	DefaultTopicReminderEvents = "reminders.events"
	DefaultTopicPaymentEvents  = "payments.events"
	DefaultTopicNotifications  = "notifications.outbound"
	DefaultDLQSuffix           = ".dlq"
	DefaultCreditsGroupID      = "credits-service"

	DefaultEnableMiddleware = true
)
