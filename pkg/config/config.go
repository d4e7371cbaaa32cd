package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Lending      LendingConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.DB.IsolationLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOOKLOAN_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKLOAN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKLOAN_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BOOKLOAN_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BOOKLOAN_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"BOOKLOAN_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BOOKLOAN_DB_DSN"`

	LegacyHost     string `envconfig:"BOOKLOAN_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKLOAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKLOAN_DB_USER"`
	LegacyPassword string `envconfig:"BOOKLOAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKLOAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKLOAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKLOAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKLOAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKLOAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKLOAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// TxIsolation applies to write transactions only; reads run outside explicit transactions.
	TxIsolation string `envconfig:"BOOKLOAN_DB_TX_ISOLATION" default:"read_committed"`
}

// IsolationLevel maps the configured isolation name onto database/sql levels.
func (db DBConfig) IsolationLevel() (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(db.TxIsolation)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, fmt.Errorf("unsupported %s %q", EnvDBTxIsolation, db.TxIsolation)
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKLOAN_REDIS_URL"`
	Address      string        `envconfig:"BOOKLOAN_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKLOAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKLOAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKLOAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKLOAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKLOAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKLOAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKLOAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOOKLOAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOOKLOAN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOOKLOAN_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime; sessions live exactly as long.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOOKLOAN_AUTO_MIGRATE" default:"false"`
}

type LendingConfig struct {
	TxTimeout time.Duration `envconfig:"BOOKLOAN_LENDING_TX_TIMEOUT" default:"5s"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"BOOKLOAN_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig throttles lending commands per authenticated user. A zero
// window or limit disables the limiter.
type RateLimitConfig struct {
	CommandWindow time.Duration `envconfig:"BOOKLOAN_RATE_LIMIT_COMMAND_WINDOW" default:"1m"`
	CommandLimit  int           `envconfig:"BOOKLOAN_RATE_LIMIT_COMMAND_LIMIT" default:"60"`
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
