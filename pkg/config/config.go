package config

import (
	"encoding/base64"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"slotbook/pkg/client"
	kafka_config "slotbook/pkg/kafka/config"
	"slotbook/pkg/logger"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var timeOfDayRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Config struct {
	ServiceName string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN      string
	PostgresMaxConns int
	CreditsStore     string

	Port string

	LogLevel  string
	LogFormat string
	LogFile   string

	PaymentWebhookSecret string
	AuthJWTSecret        string
	AuthTokenTTL         time.Duration
	CORSAllowedOrigins   []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultSlotStepMin   int
	MaxBookingDaysAhead  int
	DefaultTimezone      string
	DefaultCountry       string
	ManageTokenKey       string
	BookingDayLockExpiry time.Duration
	EventsEnabled        bool

	ReminderScanInterval    time.Duration
	ReminderLookahead       time.Duration
	ReminderDispatchWorkers int
	ReminderDispatchTimeout time.Duration
	ReminderClaimTTL        time.Duration
	ReminderBatchSize       int
	ReminderTemplateLocale  string

	NotificationDriver       string
	NotificationWebhookURL   string
	NotificationWebhookToken string

	Kafka  *kafka_config.Config
	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	v, fileErr := newViper()

	cfg := &Config{
		ServiceName: serviceName,

		MongoURI:          v.GetString(EnvMongoURI),
		MongoDatabaseName: v.GetString(EnvMongoDatabaseName),
		MongoConnTimeout:  v.GetDuration(EnvMongoConnTimeout),

		PostgresDSN:      v.GetString(EnvPostgresDSN),
		PostgresMaxConns: v.GetInt(EnvPostgresMaxConns),
		CreditsStore:     strings.ToLower(v.GetString(EnvCreditsStore)),

		Port: v.GetString(EnvPort),

		LogLevel:  v.GetString(EnvLogLevel),
		LogFormat: v.GetString(EnvLogFormat),
		LogFile:   v.GetString(EnvLogFile),

		PaymentWebhookSecret: v.GetString(EnvPaymentWebhookSecret),
		AuthJWTSecret:        v.GetString(EnvAuthJWTSecret),
		AuthTokenTTL:         v.GetDuration(EnvAuthTokenTTL),
		CORSAllowedOrigins:   splitList(v.GetString(EnvCORSAllowedOrigins)),

		RateLimitRequests: v.GetInt(EnvRateLimitRequests),
		RateLimitWindow:   v.GetDuration(EnvRateLimitWindow),

		RequestTimeout: v.GetDuration(EnvRequestTimeout),
		IdempotencyTTL: v.GetDuration(EnvIdempotencyTTL),
		MaxRequestSize: v.GetInt(EnvMaxRequestSize),

		ReadTimeout:     v.GetDuration(EnvReadTimeout),
		WriteTimeout:    v.GetDuration(EnvWriteTimeout),
		IdleTimeout:     v.GetDuration(EnvIdleTimeout),
		ShutdownTimeout: v.GetDuration(EnvShutdownTimeout),

		DefaultSlotStepMin:   v.GetInt(EnvDefaultSlotStepMin),
		MaxBookingDaysAhead:  v.GetInt(EnvMaxBookingDaysAhead),
		DefaultTimezone:      v.GetString(EnvDefaultTimezone),
		DefaultCountry:       strings.ToUpper(v.GetString(EnvDefaultCountry)),
		ManageTokenKey:       v.GetString(EnvManageTokenKey),
		BookingDayLockExpiry: v.GetDuration(EnvBookingDayLockExpiry),
		EventsEnabled:        v.GetBool(EnvEventsEnabled),

		ReminderScanInterval:    v.GetDuration(EnvReminderScanInterval),
		ReminderLookahead:       v.GetDuration(EnvReminderLookahead),
		ReminderDispatchWorkers: v.GetInt(EnvReminderDispatchWorkers),
		ReminderDispatchTimeout: v.GetDuration(EnvReminderDispatchTimeout),
		ReminderClaimTTL:        v.GetDuration(EnvReminderClaimTTL),
		ReminderBatchSize:       v.GetInt(EnvReminderBatchSize),
		ReminderTemplateLocale:  v.GetString(EnvReminderTemplateLocale),

		NotificationDriver:       strings.ToLower(v.GetString(EnvNotificationDriver)),
		NotificationWebhookURL:   v.GetString(EnvNotificationWebhookURL),
		NotificationWebhookToken: v.GetString(EnvNotificationWebhookToken),

		Kafka:  kafka_config.FromViper(v),
		Client: client.NewClient(),
	}

	cfg.Log = logger.New(logger.Config{
		Level:         cfg.LogLevel,
		Format:        cfg.LogFormat,
		AddSource:     true,
		Service:       serviceName,
		File:          cfg.LogFile,
		MaxSizeMB:     v.GetInt(EnvLogMaxSizeMB),
		MaxBackups:    v.GetInt(EnvLogMaxBackups),
		MaxAgeDays:    v.GetInt(EnvLogMaxAgeDays),
		CompressFiles: true,
	})

	if fileErr != nil {
		cfg.Log.Warn("Config file could not be read, continuing with environment only", "error", fileErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	kafka_config.SetDefaults(v)

	file := os.Getenv(EnvConfigFile)
	if file == "" {
		return v, nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return v, fmt.Errorf("read config file %s: %w", file, err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvMongoURI, DefaultMongoURI)
	v.SetDefault(EnvMongoDatabaseName, DefaultMongoDatabaseName)
	v.SetDefault(EnvMongoConnTimeout, DefaultMongoConnTimeout)

	v.SetDefault(EnvPostgresMaxConns, DefaultPostgresMaxConns)
	v.SetDefault(EnvCreditsStore, DefaultCreditsStore)

	v.SetDefault(EnvPort, DefaultPort)

	v.SetDefault(EnvLogLevel, DefaultLogLevel)
	v.SetDefault(EnvLogFormat, DefaultLogFormat)
	v.SetDefault(EnvLogMaxSizeMB, DefaultLogMaxSizeMB)
	v.SetDefault(EnvLogMaxBackups, DefaultLogMaxBackups)
	v.SetDefault(EnvLogMaxAgeDays, DefaultLogMaxAgeDays)

	v.SetDefault(EnvAuthTokenTTL, DefaultAuthTokenTTL)

	v.SetDefault(EnvRateLimitRequests, DefaultRateLimitRequests)
	v.SetDefault(EnvRateLimitWindow, DefaultRateLimitWindow)

	v.SetDefault(EnvRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(EnvIdempotencyTTL, DefaultIdempotencyTTL)
	v.SetDefault(EnvMaxRequestSize, DefaultMaxRequestSize)

	v.SetDefault(EnvReadTimeout, DefaultReadTimeout)
	v.SetDefault(EnvWriteTimeout, DefaultWriteTimeout)
	v.SetDefault(EnvIdleTimeout, DefaultIdleTimeout)
	v.SetDefault(EnvShutdownTimeout, DefaultShutdownTimeout)

	v.SetDefault(EnvDefaultSlotStepMin, DefaultSlotStepMin)
	v.SetDefault(EnvMaxBookingDaysAhead, DefaultMaxBookingDaysAhead)
	v.SetDefault(EnvDefaultTimezone, DefaultTimezone)
	v.SetDefault(EnvDefaultCountry, DefaultCountry)
	v.SetDefault(EnvManageTokenKey, DefaultManageTokenKey)
	v.SetDefault(EnvBookingDayLockExpiry, DefaultBookingDayLockExpiry)
	v.SetDefault(EnvEventsEnabled, false)

	v.SetDefault(EnvReminderScanInterval, DefaultReminderScanInterval)
	v.SetDefault(EnvReminderLookahead, DefaultReminderLookahead)
	v.SetDefault(EnvReminderDispatchWorkers, DefaultReminderDispatchWorkers)
	v.SetDefault(EnvReminderDispatchTimeout, DefaultReminderDispatchTimeout)
	v.SetDefault(EnvReminderClaimTTL, DefaultReminderClaimTTL)
	v.SetDefault(EnvReminderBatchSize, DefaultReminderBatchSize)
	v.SetDefault(EnvReminderTemplateLocale, DefaultReminderTemplateLocale)

	v.SetDefault(EnvNotificationDriver, DefaultNotificationDriver)
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.PostgresMaxConns, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	switch cfg.CreditsStore {
	case CreditsStoreMongo:
	case CreditsStorePostgres:
		if cfg.PostgresDSN == "" {
			errors = append(errors, "PostgresDSN is required when CreditsStore is postgres")
		}
		if cfg.PostgresMaxConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxConns must be positive, got: %d", cfg.PostgresMaxConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("CreditsStore must be one of [mongo, postgres], got: %s", cfg.CreditsStore))
	}

	positiveDurations := map[string]time.Duration{
		"RateLimitWindow":         cfg.RateLimitWindow,
		"RequestTimeout":          cfg.RequestTimeout,
		"IdempotencyTTL":          cfg.IdempotencyTTL,
		"ReadTimeout":             cfg.ReadTimeout,
		"WriteTimeout":            cfg.WriteTimeout,
		"IdleTimeout":             cfg.IdleTimeout,
		"ShutdownTimeout":         cfg.ShutdownTimeout,
		"AuthTokenTTL":            cfg.AuthTokenTTL,
		"BookingDayLockExpiry":    cfg.BookingDayLockExpiry,
		"ReminderScanInterval":    cfg.ReminderScanInterval,
		"ReminderLookahead":       cfg.ReminderLookahead,
		"ReminderDispatchTimeout": cfg.ReminderDispatchTimeout,
		"ReminderClaimTTL":        cfg.ReminderClaimTTL,
	}
	for _, name := range sortedKeys(positiveDurations) {
		if positiveDurations[name] <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, positiveDurations[name]))
		}
	}

	positiveInts := map[string]int{
		"RateLimitRequests":       cfg.RateLimitRequests,
		"MaxRequestSize":          cfg.MaxRequestSize,
		"DefaultSlotStepMin":      cfg.DefaultSlotStepMin,
		"MaxBookingDaysAhead":     cfg.MaxBookingDaysAhead,
		"ReminderDispatchWorkers": cfg.ReminderDispatchWorkers,
		"ReminderBatchSize":       cfg.ReminderBatchSize,
	}
	for _, name := range sortedKeys(positiveInts) {
		if positiveInts[name] <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %d", name, positiveInts[name]))
		}
	}

	if cfg.ReminderDispatchTimeout >= cfg.ReminderClaimTTL {
		errors = append(errors, fmt.Sprintf("ReminderDispatchTimeout (%s) must be shorter than ReminderClaimTTL (%s)", cfg.ReminderDispatchTimeout, cfg.ReminderClaimTTL))
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil || cfg.DefaultTimezone == "" {
		errors = append(errors, fmt.Sprintf("DefaultTimezone must be a valid IANA timezone, got: %s", cfg.DefaultTimezone))
	}

	if key, err := base64.StdEncoding.DecodeString(cfg.ManageTokenKey); err != nil || len(key) != 32 {
		errors = append(errors, "ManageTokenKey must be a base64 encoded 32 byte key")
	}

	switch cfg.NotificationDriver {
	case NotificationDriverLog, NotificationDriverKafka:
	case NotificationDriverWebhook:
		if cfg.NotificationWebhookURL == "" {
			errors = append(errors, "NotificationWebhookURL is required when NotificationDriver is webhook")
		}
	default:
		errors = append(errors, fmt.Sprintf("NotificationDriver must be one of [log, kafka, webhook], got: %s", cfg.NotificationDriver))
	}

	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"credits_store", cfg.CreditsStore,
		"postgres_dsn_set", cfg.PostgresDSN != "",
		"port", cfg.Port,
		"log_file", cfg.LogFile,
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"auth_enforced", cfg.AuthJWTSecret != "",
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"default_slot_step_min", cfg.DefaultSlotStepMin,
		"max_booking_days_ahead", cfg.MaxBookingDaysAhead,
		"default_timezone", cfg.DefaultTimezone,
		"default_country", cfg.DefaultCountry,
		"events_enabled", cfg.EventsEnabled,
		"reminder_scan_interval", cfg.ReminderScanInterval,
		"reminder_lookahead", cfg.ReminderLookahead,
		"reminder_dispatch_workers", cfg.ReminderDispatchWorkers,
		"reminder_dispatch_timeout", cfg.ReminderDispatchTimeout,
		"reminder_claim_ttl", cfg.ReminderClaimTTL,
		"reminder_batch_size", cfg.ReminderBatchSize,
		"notification_driver", cfg.NotificationDriver,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

// IsTimeOfDay reports whether s is a 24h "HH:MM" value.
func IsTimeOfDay(s string) bool {
	return timeOfDayRegex.MatchString(s)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
