package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Quotes       QuotesConfig
	Pricing      PricingConfig
	Halt         HaltConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Notify       NotifyConfig
	Payment      PaymentConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SCB_APP_ENV" required:"true"`
	Port         string   `envconfig:"SCB_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SCB_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SCB_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SCB_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SCB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SCB_DB_DSN"`
	Driver string `envconfig:"SCB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCB_DB_HOST"`
	LegacyPort     int    `envconfig:"SCB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCB_DB_USER"`
	LegacyPassword string `envconfig:"SCB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCB_REDIS_ADDR"`
	Password     string        `envconfig:"SCB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// QuotesConfig wires the external spot-price and FX provider.
type QuotesConfig struct {
	BaseURL        string        `envconfig:"SCB_QUOTES_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"SCB_QUOTES_API_KEY"`
	RequestTimeout time.Duration `envconfig:"SCB_QUOTES_REQUEST_TIMEOUT" default:"3s"`

	// FallbackFXRate is applied only when the FX endpoint fails and is
	// surfaced as degraded. Zero disables the fallback entirely.
	FallbackFXRate float64 `envconfig:"SCB_QUOTES_FALLBACK_FX_RATE" default:"0"`
}

// PricingConfig carries lock-window and payment-tolerance settings. Markup,
// fees and discount tiers live in the database (admin-mutable).
type PricingConfig struct {
	LockWindow        time.Duration `envconfig:"SCB_PRICING_LOCK_WINDOW" default:"15m"`
	ToleranceFraction float64       `envconfig:"SCB_PRICING_TOLERANCE_FRACTION" default:"0.01"`
	ToleranceMinimum  float64       `envconfig:"SCB_PRICING_TOLERANCE_MINIMUM" default:"0.50"`
}

// HaltConfig carries monitor defaults; per-metal thresholds live in the database.
type HaltConfig struct {
	DefaultDropThresholdPct float64       `envconfig:"SCB_HALT_DEFAULT_DROP_THRESHOLD_PCT" default:"5"`
	DefaultWindow           time.Duration `envconfig:"SCB_HALT_DEFAULT_WINDOW" default:"60m"`
	SnapshotRetention       time.Duration `envconfig:"SCB_HALT_SNAPSHOT_RETENTION" default:"24h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SCB_CRON_INTERVAL" default:"3m"`
	LockTTL  time.Duration `envconfig:"SCB_CRON_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SCB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SCB_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SCB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SCB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SCB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SCB_PUBSUB_DOMAIN_TOPIC" default:"bullion-domain-events"`
	DomainSubscription string `envconfig:"SCB_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SCB_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SCB_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SCB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PaymentConfig covers the capture webhook from the payment gateway.
type PaymentConfig struct {
	WebhookSecret  string        `envconfig:"SCB_PAYMENT_WEBHOOK_SECRET"`
	IdempotencyTTL time.Duration `envconfig:"SCB_PAYMENT_IDEMPOTENCY_TTL" default:"24h"`
}

// NotifyConfig lists the recipients of halt notifications. Delivery is
// best-effort over the outbox channel; these addresses ride the event payload.
type NotifyConfig struct {
	HaltRecipients []string `envconfig:"SCB_NOTIFY_HALT_RECIPIENTS"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
