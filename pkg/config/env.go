package config

const (
	EnvPrefix = "TEAHOUSE"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv      = "TEAHOUSE_APP_ENV"
	EnvPort        = "TEAHOUSE_APP_PORT"
	EnvDBDSN       = "TEAHOUSE_DB_DSN"
	EnvDBHost      = "TEAHOUSE_DB_HOST"
	EnvDBUser      = "TEAHOUSE_DB_USER"
	EnvDBName      = "TEAHOUSE_DB_NAME"
	EnvRedisURL    = "TEAHOUSE_REDIS_URL"
	EnvJWTSecret   = "TEAHOUSE_JWT_SECRET"
	EnvJWTIssuer   = "TEAHOUSE_JWT_ISSUER"
	EnvUseSQLite   = "TEAHOUSE_USE_SQLITE"
	EnvStripeKey   = "TEAHOUSE_STRIPE_API_KEY"
	EnvStripeEnv   = "TEAHOUSE_STRIPE_ENV"
	EnvLogFormat   = "TEAHOUSE_LOG_FORMAT"
	EnvLogLevel    = "TEAHOUSE_LOG_LEVEL"
	EnvAutoMigrate = "TEAHOUSE_AUTO_MIGRATE"

	EnvCheckoutDiscountMinQty  = "TEAHOUSE_CHECKOUT_DISCOUNT_MIN_QTY"
	EnvCheckoutDiscountPercent = "TEAHOUSE_CHECKOUT_DISCOUNT_PERCENT"
	EnvCheckoutCartStorageKey  = "TEAHOUSE_CHECKOUT_CART_STORAGE_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
