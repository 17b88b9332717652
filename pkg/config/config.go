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
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Checkout      CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TEAHOUSE_APP_ENV" required:"true"`
	Port         string `envconfig:"TEAHOUSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEAHOUSE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TEAHOUSE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"TEAHOUSE_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow list; empty falls back to the
	// Expo dev server origins.
	CORSOrigins []string `envconfig:"TEAHOUSE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TEAHOUSE_DB_DSN"`
	Driver string `envconfig:"TEAHOUSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TEAHOUSE_DB_HOST"`
	LegacyPort     int    `envconfig:"TEAHOUSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TEAHOUSE_DB_USER"`
	LegacyPassword string `envconfig:"TEAHOUSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TEAHOUSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TEAHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEAHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEAHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEAHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEAHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEAHOUSE_REDIS_URL"`
	Address      string        `envconfig:"TEAHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"TEAHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEAHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEAHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEAHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEAHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEAHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEAHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
	// CartTTL bounds how long an idle persisted cart survives; zero keeps it forever.
	CartTTL time.Duration `envconfig:"TEAHOUSE_REDIS_CART_TTL" default:"0"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TEAHOUSE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TEAHOUSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TEAHOUSE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"TEAHOUSE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TEAHOUSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TEAHOUSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TEAHOUSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TEAHOUSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TEAHOUSE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"TEAHOUSE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"TEAHOUSE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"TEAHOUSE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"TEAHOUSE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"TEAHOUSE_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"TEAHOUSE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TEAHOUSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TEAHOUSE_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey              string `envconfig:"TEAHOUSE_STRIPE_API_KEY"`
	Env                 string `envconfig:"TEAHOUSE_STRIPE_ENV" default:"test"`
	Currency            string `envconfig:"TEAHOUSE_STRIPE_CURRENCY" default:"lkr"`
	MerchantDisplayName string `envconfig:"TEAHOUSE_STRIPE_MERCHANT_NAME" default:"Tea App"`
	// ConfirmPaymentMethod is the payment method the server-side sheet confirms with.
	ConfirmPaymentMethod string `envconfig:"TEAHOUSE_STRIPE_CONFIRM_PAYMENT_METHOD" default:"pm_card_visa"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Enabled reports whether an API key was provided.
func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type CheckoutConfig struct {
	DiscountMinQty  int    `envconfig:"TEAHOUSE_CHECKOUT_DISCOUNT_MIN_QTY" default:"3"`
	DiscountPercent string `envconfig:"TEAHOUSE_CHECKOUT_DISCOUNT_PERCENT" default:"10"`
	CartStorageKey  string `envconfig:"TEAHOUSE_CHECKOUT_CART_STORAGE_KEY" default:"cartItems"`
}

// DiscountRate returns the configured bulk discount as a fraction.
func (c CheckoutConfig) DiscountRate() decimal.Decimal {
	pct, err := decimal.NewFromString(strings.TrimSpace(c.DiscountPercent))
	if err != nil {
		return decimal.Zero
	}
	return pct.Div(decimal.NewFromInt(100))
}

func (c CheckoutConfig) validate() error {
	if c.DiscountMinQty < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCheckoutDiscountMinQty)
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(c.DiscountPercent))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvCheckoutDiscountPercent, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvCheckoutDiscountPercent)
	}
	if strings.TrimSpace(c.CartStorageKey) == "" {
		return fmt.Errorf("%s must not be empty", EnvCheckoutCartStorageKey)
	}
	return nil
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:teahouse.db?cache=shared"
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
