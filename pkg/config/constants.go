package config

const EnvPrefix = "BOOKLOAN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "BOOKLOAN_APP_ENV"
	EnvPort          = "BOOKLOAN_APP_PORT"
	EnvLogLevel      = "BOOKLOAN_LOG_LEVEL"
	EnvDBDSN         = "BOOKLOAN_DB_DSN"
	EnvDBHost        = "BOOKLOAN_DB_HOST"
	EnvDBUser        = "BOOKLOAN_DB_USER"
	EnvDBName        = "BOOKLOAN_DB_NAME"
	EnvDBPassword    = "BOOKLOAN_DB_PASSWORD"
	EnvDBTxIsolation = "BOOKLOAN_DB_TX_ISOLATION"
	EnvRedisURL      = "BOOKLOAN_REDIS_URL"
	EnvJWTSecret     = "BOOKLOAN_JWT_SECRET"
	EnvJWTIssuer     = "BOOKLOAN_JWT_ISSUER"
	EnvJWTExpMins    = "BOOKLOAN_JWT_EXPIRATION_MINUTES"
	EnvTxTimeout     = "BOOKLOAN_LENDING_TX_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
