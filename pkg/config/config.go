package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FedaPay      FedaPayConfig
	Revenue      RevenueConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, _, err := cfg.Revenue.Shares(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIA_APP_ENV" required:"true"`
	Port         string `envconfig:"LIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LIA_DB_DSN"`
	Driver string `envconfig:"LIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIA_DB_HOST"`
	LegacyPort     int    `envconfig:"LIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIA_DB_USER"`
	LegacyPassword string `envconfig:"LIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIA_REDIS_ADDR"`
	Password     string        `envconfig:"LIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FedaPayConfig struct {
	SecretKey      string        `envconfig:"LIA_FEDAPAY_SECRET_KEY" required:"true"`
	WebhookSecret  string        `envconfig:"LIA_FEDAPAY_WEBHOOK_SECRET"`
	Env            string        `envconfig:"LIA_FEDAPAY_ENV" default:"sandbox"`
	BaseURL        string        `envconfig:"LIA_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"LIA_FEDAPAY_REQUEST_TIMEOUT" default:"10s"`
	Currency       string        `envconfig:"LIA_FEDAPAY_CURRENCY" default:"XOF"`
	IdempotencyTTL time.Duration `envconfig:"LIA_FEDAPAY_IDEMPOTENCY_TTL" default:"720h"`
}

// Environment returns the normalized FedaPay environment (sandbox/live).
func (f FedaPayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(f.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// CallbackURL composes the webhook address handed to FedaPay at mint time.
func (f FedaPayConfig) CallbackURL() string {
	return strings.TrimRight(f.BaseURL, "/") + CallbackPath
}

// RevenueConfig carries the revenue split applied on approved settlements.
// The ratios are configuration so alternative splits stay testable, but they
// always have to cover the full sale amount.
type RevenueConfig struct {
	AuthorShare   string `envconfig:"LIA_REVENUE_AUTHOR_SHARE" default:"0.7"`
	PlatformShare string `envconfig:"LIA_REVENUE_PLATFORM_SHARE" default:"0.3"`
}

// Shares parses and validates the split ratios. The two shares must each be
// positive and sum to exactly 1.
func (r RevenueConfig) Shares() (author decimal.Decimal, platform decimal.Decimal, err error) {
	author, err = decimal.NewFromString(strings.TrimSpace(r.AuthorShare))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parsing author share %q: %w", r.AuthorShare, err)
	}
	platform, err = decimal.NewFromString(strings.TrimSpace(r.PlatformShare))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parsing platform share %q: %w", r.PlatformShare, err)
	}
	if !author.IsPositive() || !platform.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("revenue shares must be positive (author=%s platform=%s)", author, platform)
	}
	if !author.Add(platform).Equal(decimal.NewFromInt(1)) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("revenue shares must sum to 1 (author=%s platform=%s)", author, platform)
	}
	return author, platform, nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LIA_AUTO_MIGRATE" default:"false"`
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
