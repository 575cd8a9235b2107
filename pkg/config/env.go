package config

const (
	EnvPrefix = "FURNITURE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "FURNITURE_APP_ENV"
	EnvPort       = "FURNITURE_APP_PORT"
	EnvDBDSN      = "FURNITURE_DB_DSN"
	EnvDBHost     = "FURNITURE_DB_HOST"
	EnvDBUser     = "FURNITURE_DB_USER"
	EnvDBName     = "FURNITURE_DB_NAME"
	EnvDBPassword = "FURNITURE_DB_PASSWORD"
	EnvRedisURL   = "FURNITURE_REDIS_URL"
	EnvJWTSecret  = "FURNITURE_JWT_SECRET"
	EnvJWTIssuer  = "FURNITURE_JWT_ISSUER"
	EnvJWTExpMins = "FURNITURE_JWT_EXPIRATION_MINUTES"
	EnvKafka      = "FURNITURE_KAFKA_BROKERS"
	EnvBroker     = "FURNITURE_OUTBOX_BROKER"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
