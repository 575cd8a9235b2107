package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Idempotency   IdempotencyConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	Outbox        OutboxConfig
	Kafka         KafkaConfig
	Cron          CronConfig
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
	Env          string `envconfig:"FURNITURE_APP_ENV" required:"true"`
	Port         string `envconfig:"FURNITURE_APP_PORT" default:"5050"`
	LogLevel     string `envconfig:"FURNITURE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FURNITURE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"FURNITURE_LOG_FORMAT" default:"json"`
	// PublicOrigin is used to build password reset and checkout return links.
	PublicOrigin string `envconfig:"FURNITURE_PUBLIC_ORIGIN" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ListenAddr prefers the platform-injected PORT over the configured one.
func (a AppConfig) ListenAddr() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":" + a.Port
}

type ServiceConfig struct {
	Kind string `envconfig:"FURNITURE_SERVICE_KIND" default:"api"`
	// OpsAddr is where background workers serve /metrics; empty disables it.
	OpsAddr string `envconfig:"FURNITURE_OPS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"FURNITURE_DB_DSN"`
	Driver string `envconfig:"FURNITURE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FURNITURE_DB_HOST"`
	Port     int    `envconfig:"FURNITURE_DB_PORT" default:"5432"`
	User     string `envconfig:"FURNITURE_DB_USER"`
	Password string `envconfig:"FURNITURE_DB_PASSWORD"`
	Name     string `envconfig:"FURNITURE_DB_NAME"`
	SSLMode  string `envconfig:"FURNITURE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FURNITURE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FURNITURE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FURNITURE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FURNITURE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this at warn level. Zero disables it.
	SlowQuery time.Duration `envconfig:"FURNITURE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FURNITURE_REDIS_URL"`
	Address      string        `envconfig:"FURNITURE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"FURNITURE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FURNITURE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FURNITURE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FURNITURE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FURNITURE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FURNITURE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FURNITURE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FURNITURE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FURNITURE_JWT_ISSUER" default:"furniture-backend"`
	ExpirationMinutes int    `envconfig:"FURNITURE_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FURNITURE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FURNITURE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FURNITURE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FURNITURE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FURNITURE_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"FURNITURE_PASSWORD_MIN_LENGTH" default:"8"`
	// ResetTokenTTL bounds how long a forgot-password link stays valid.
	ResetTokenTTL time.Duration `envconfig:"FURNITURE_PASSWORD_RESET_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FURNITURE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FURNITURE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FURNITURE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow  time.Duration `envconfig:"FURNITURE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit int           `envconfig:"FURNITURE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ForgotWindow    time.Duration `envconfig:"FURNITURE_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"15m"`
	ForgotIPLimit   int           `envconfig:"FURNITURE_AUTH_RATE_LIMIT_FORGOT_IP_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FURNITURE_AUTO_MIGRATE" default:"false"`
}

type IdempotencyConfig struct {
	RequestTTL time.Duration `envconfig:"FURNITURE_IDEMPOTENCY_TTL" default:"24h"`
	WebhookTTL time.Duration `envconfig:"FURNITURE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"FURNITURE_STRIPE_API_KEY"`
	Secret     string `envconfig:"FURNITURE_STRIPE_WEBHOOK_SECRET"`
	Env        string `envconfig:"FURNITURE_STRIPE_ENV" default:"test"`
	Currency   string `envconfig:"FURNITURE_STRIPE_CURRENCY" default:"thb"`
	MethodType string `envconfig:"FURNITURE_STRIPE_PAYMENT_METHOD" default:"promptpay"`
	SuccessURL string `envconfig:"FURNITURE_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"FURNITURE_STRIPE_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"FURNITURE_GCP_PROJECT_ID"`
}

type OutboxConfig struct {
	Broker         string `envconfig:"FURNITURE_OUTBOX_BROKER" default:"pubsub"`
	BatchSize      int    `envconfig:"FURNITURE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"FURNITURE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"FURNITURE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// A failed row waits RetryBase doubled per attempt, capped at RetryMax.
	RetryBase time.Duration `envconfig:"FURNITURE_OUTBOX_RETRY_BASE" default:"2s"`
	RetryMax  time.Duration `envconfig:"FURNITURE_OUTBOX_RETRY_MAX" default:"5m"`
	// Lease hides claimed rows from other publishers while they are sent.
	Lease time.Duration `envconfig:"FURNITURE_OUTBOX_LEASE" default:"1m"`
	OrdersTopic    string `envconfig:"FURNITURE_OUTBOX_ORDERS_TOPIC" default:"furniture-order-events"`
	PaymentsTopic  string `envconfig:"FURNITURE_OUTBOX_PAYMENTS_TOPIC" default:"furniture-payment-events"`
	AccountsTopic  string `envconfig:"FURNITURE_OUTBOX_ACCOUNTS_TOPIC" default:"furniture-account-events"`
	// Retention is how long published rows are kept before the cron worker prunes them.
	Retention time.Duration `envconfig:"FURNITURE_OUTBOX_RETENTION" default:"168h"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"FURNITURE_KAFKA_BROKERS" default:"localhost:9092"`
	WriteTimeout time.Duration `envconfig:"FURNITURE_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	// Interval is the scheduler tick; each job also has its own cadence.
	Interval time.Duration `envconfig:"FURNITURE_CRON_INTERVAL" default:"1m"`

	SessionExpiryEvery   time.Duration `envconfig:"FURNITURE_CRON_SESSION_EXPIRY_EVERY" default:"15m"`
	ResetTokenPurgeEvery time.Duration `envconfig:"FURNITURE_CRON_RESET_PURGE_EVERY" default:"1h"`
	OutboxRetentionEvery time.Duration `envconfig:"FURNITURE_CRON_OUTBOX_RETENTION_EVERY" default:"24h"`
	// SessionTTL is how long an INITIATED payment session may wait before it is failed.
	SessionTTL time.Duration `envconfig:"FURNITURE_CRON_PAYMENT_SESSION_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
