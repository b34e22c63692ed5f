package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPostgresMaxConns = 10
	DefaultCreditsStore     = CreditsStoreMongo

	DefaultPort = "8080"

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 14

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultAuthTokenTTL = 12 * time.Hour

	DefaultSlotStepMin          = 15
	DefaultMaxBookingDaysAhead  = 180
	DefaultTimezone             = "Europe/Brussels"
	DefaultCountry              = "BE"
	DefaultManageTokenKey       = "lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60="
	DefaultBookingDayLockExpiry = 30 * time.Second

	DefaultReminderScanInterval     = 2 * time.Minute
	DefaultReminderLookahead        = 8 * 24 * time.Hour
	DefaultReminderDispatchWorkers  = 8
	DefaultReminderDispatchTimeout  = 15 * time.Second
	DefaultReminderClaimTTL         = 5 * time.Minute
	DefaultReminderBatchSize        = 500
	DefaultReminderDaysBefore       = 1
	DefaultReminderSendTime         = "09:00"
	DefaultReminderSameDayMinBefore = 60
	DefaultReminderTemplateLocale   = "nl"

	DefaultNotificationDriver = NotificationDriverLog

	DefaultPaginationLimit = 100
)

const (
	CreditsStoreMongo    = "mongo"
	CreditsStorePostgres = "postgres"

	NotificationDriverLog     = "log"
	NotificationDriverKafka   = "kafka"
	NotificationDriverWebhook = "webhook"
)
