package config

const (
	EnvConfigFile = "CONFIG_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN      = "POSTGRES_DSN"
	EnvPostgresMaxConns = "POSTGRES_MAX_CONNS"
	EnvCreditsStore     = "CREDITS_STORE"

	EnvPort = "PORT"

	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
	EnvLogFile       = "LOG_FILE"
	EnvLogMaxSizeMB  = "LOG_MAX_SIZE_MB"
	EnvLogMaxBackups = "LOG_MAX_BACKUPS"
	EnvLogMaxAgeDays = "LOG_MAX_AGE_DAYS"

	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"
	EnvAuthJWTSecret        = "AUTH_JWT_SECRET"
	EnvAuthTokenTTL         = "AUTH_TOKEN_TTL"
	EnvCORSAllowedOrigins   = "CORS_ALLOWED_ORIGINS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultSlotStepMin   = "DEFAULT_SLOT_STEP_MIN"
	EnvMaxBookingDaysAhead  = "MAX_BOOKING_DAYS_AHEAD"
	EnvDefaultTimezone      = "DEFAULT_TIMEZONE"
	EnvDefaultCountry       = "DEFAULT_COUNTRY"
	EnvManageTokenKey       = "MANAGE_TOKEN_KEY"
	EnvBookingDayLockExpiry = "BOOKING_DAY_LOCK_EXPIRY"
	EnvEventsEnabled        = "EVENTS_ENABLED"

	EnvReminderScanInterval    = "REMINDER_SCAN_INTERVAL"
	EnvReminderLookahead       = "REMINDER_LOOKAHEAD"
	EnvReminderDispatchWorkers = "REMINDER_DISPATCH_WORKERS"
	EnvReminderDispatchTimeout = "REMINDER_DISPATCH_TIMEOUT"
	EnvReminderClaimTTL        = "REMINDER_CLAIM_TTL"
	EnvReminderBatchSize       = "REMINDER_BATCH_SIZE"
	EnvReminderTemplateLocale  = "REMINDER_TEMPLATE_LOCALE"

	EnvNotificationDriver       = "NOTIFICATION_DRIVER"
	EnvNotificationWebhookURL   = "NOTIFICATION_WEBHOOK_URL"
	EnvNotificationWebhookToken = "NOTIFICATION_WEBHOOK_TOKEN"
)
