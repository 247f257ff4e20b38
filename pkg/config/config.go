package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "LOCALKART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LOCALKART_DB_DSN"
	EnvDBHost = "LOCALKART_DB_HOST"
	EnvDBUser = "LOCALKART_DB_USER"
	EnvDBName = "LOCALKART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Migrate   MigrateConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"LOCALKART_APP_ENV" required:"true"`
	Port         string `envconfig:"LOCALKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOCALKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOCALKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LOCALKART_DB_DSN"`
	Driver string `envconfig:"LOCALKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOCALKART_DB_HOST"`
	LegacyPort     int    `envconfig:"LOCALKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOCALKART_DB_USER"`
	LegacyPassword string `envconfig:"LOCALKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOCALKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOCALKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOCALKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOCALKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOCALKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOCALKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOCALKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOCALKART_REDIS_ADDR"`
	Password     string        `envconfig:"LOCALKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOCALKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOCALKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOCALKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOCALKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOCALKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOCALKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LOCALKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LOCALKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LOCALKART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"LOCALKART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"LOCALKART_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
	WalletWindow   time.Duration `envconfig:"LOCALKART_RATE_LIMIT_WALLET_WINDOW" default:"1m"`
	WalletLimit    int           `envconfig:"LOCALKART_RATE_LIMIT_WALLET_LIMIT" default:"20"`
}

type MigrateConfig struct {
	AutoRun bool   `envconfig:"LOCALKART_MIGRATE_AUTORUN" default:"false"`
	Dir     string `envconfig:"LOCALKART_MIGRATE_DIR" default:"pkg/migrate/migrations"`
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
