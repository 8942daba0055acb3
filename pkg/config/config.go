package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "LAMSA_DB_DSN"
	EnvDBHost = "LAMSA_DB_HOST"
	EnvDBUser = "LAMSA_DB_USER"
	EnvDBName = "LAMSA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Moyasar      MoyasarConfig
	Tabby        TabbyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Webhooks     WebhookConfig
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
	Env          string `envconfig:"LAMSA_APP_ENV" required:"true"`
	Port         string `envconfig:"LAMSA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LAMSA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LAMSA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LAMSA_DB_DSN"`
	Driver string `envconfig:"LAMSA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LAMSA_DB_HOST"`
	LegacyPort     int    `envconfig:"LAMSA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LAMSA_DB_USER"`
	LegacyPassword string `envconfig:"LAMSA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LAMSA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LAMSA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LAMSA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAMSA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAMSA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAMSA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LAMSA_REDIS_URL"`
	Address      string        `envconfig:"LAMSA_REDIS_ADDR"`
	Password     string        `envconfig:"LAMSA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAMSA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAMSA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAMSA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAMSA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAMSA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAMSA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LAMSA_AUTO_MIGRATE" default:"false"`
}

// MoyasarConfig holds card gateway credentials.
type MoyasarConfig struct {
	SecretKey     string        `envconfig:"LAMSA_MOYASAR_SECRET_KEY"`
	WebhookSecret string        `envconfig:"LAMSA_MOYASAR_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"LAMSA_MOYASAR_BASE_URL" default:"https://api.moyasar.com/v1"`
	Timeout       time.Duration `envconfig:"LAMSA_MOYASAR_TIMEOUT" default:"15s"`
	CallbackURL   string        `envconfig:"LAMSA_MOYASAR_CALLBACK_URL"`
}

// TabbyConfig holds buy-now-pay-later gateway credentials.
type TabbyConfig struct {
	SecretKey     string        `envconfig:"LAMSA_TABBY_SECRET_KEY"`
	WebhookSecret string        `envconfig:"LAMSA_TABBY_WEBHOOK_SECRET"`
	MerchantCode  string        `envconfig:"LAMSA_TABBY_MERCHANT_CODE"`
	BaseURL       string        `envconfig:"LAMSA_TABBY_BASE_URL" default:"https://api.tabby.ai/api/v2"`
	Timeout       time.Duration `envconfig:"LAMSA_TABBY_TIMEOUT" default:"15s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"LAMSA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"LAMSA_PUBSUB_NOTIFICATION_TOPIC" default:"lamsa-payment-events"`
}

// WebhookConfig tunes the replay fast path in front of the durable event log
// and the per-source throttle on the callback endpoints.
type WebhookConfig struct {
	ReplayGuardTTL  time.Duration `envconfig:"LAMSA_WEBHOOK_REPLAY_GUARD_TTL" default:"720h"`
	RateLimit       int64         `envconfig:"LAMSA_WEBHOOK_RATE_LIMIT" default:"120"`
	RateLimitWindow time.Duration `envconfig:"LAMSA_WEBHOOK_RATE_LIMIT_WINDOW" default:"1m"`
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
