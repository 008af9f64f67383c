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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Pricing      PricingConfig
	Cleanup      CleanupConfig
	Printer      PrinterConfig
	Network      NetworkConfig
	Broadcast    BroadcastConfig
	Payment      PaymentConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POS_APP_ENV" required:"true"`
	Port         string `envconfig:"POS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POS_DB_DSN"`
	Driver string `envconfig:"POS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"POS_DB_HOST"`
	Port     int    `envconfig:"POS_DB_PORT" default:"5432"`
	User     string `envconfig:"POS_DB_USER"`
	Password string `envconfig:"POS_DB_PASSWORD"`
	Name     string `envconfig:"POS_DB_NAME"`
	SSLMode  string `envconfig:"POS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"POS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"POS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POS_REDIS_URL"`
	Address      string        `envconfig:"POS_REDIS_ADDR"`
	Password     string        `envconfig:"POS_REDIS_PASSWORD"`
	DB           int           `envconfig:"POS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"POS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"POS_JWT_ISSUER" default:"pos-backend"`
	ExpirationMinutes int    `envconfig:"POS_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"POS_SQUARE_ACCESS_TOKEN"`
	Environment string `envconfig:"POS_SQUARE_ENVIRONMENT" default:"sandbox"`
	LocationID  string `envconfig:"POS_SQUARE_LOCATION_ID"`
}

// PricingConfig holds the sales tax rate applied to the pre-discount
// subtotal.
type PricingConfig struct {
	TaxRate float64 `envconfig:"POS_TAX_RATE" default:"0.08"`
}

// CleanupConfig drives the daily archival run.
type CleanupConfig struct {
	Hour        int           `envconfig:"POS_CLEANUP_HOUR" default:"3"`
	Timezone    string        `envconfig:"POS_CLEANUP_TIMEZONE" default:"America/Los_Angeles"`
	MaxAge      time.Duration `envconfig:"POS_CLEANUP_MAX_AGE" default:"24h"`
	LockTTL     time.Duration `envconfig:"POS_CLEANUP_LOCK_TTL" default:"1h"`
	MetricsPort string        `envconfig:"POS_CLEANUP_METRICS_PORT" default:"9090"`
}

type PrinterConfig struct {
	ReceiptAddr    string        `envconfig:"POS_PRINTER_RECEIPT_ADDR"`
	KDSAddr        string        `envconfig:"POS_PRINTER_KDS_ADDR"`
	ReceiptEnabled bool          `envconfig:"POS_PRINTER_RECEIPT_ENABLED" default:"true"`
	KDSEnabled     bool          `envconfig:"POS_PRINTER_KDS_ENABLED" default:"true"`
	SendTimeout    time.Duration `envconfig:"POS_PRINTER_SEND_TIMEOUT" default:"3s"`
}

// NetworkConfig controls the connectivity gate that opens outbound access
// only while a card transaction is in flight. Empty commands leave the gate
// as a no-op.
type NetworkConfig struct {
	GateEnabled  bool          `envconfig:"POS_NETWORK_GATE_ENABLED" default:"false"`
	EnableCmd    string        `envconfig:"POS_NETWORK_ENABLE_CMD"`
	DisableCmd   string        `envconfig:"POS_NETWORK_DISABLE_CMD"`
	CheckURL     string        `envconfig:"POS_NETWORK_CHECK_URL" default:"https://connect.squareup.com/health"`
	CheckTimeout time.Duration `envconfig:"POS_NETWORK_CHECK_TIMEOUT" default:"5s"`
}

type BroadcastConfig struct {
	SendBuffer   int           `envconfig:"POS_BROADCAST_SEND_BUFFER" default:"32"`
	WriteTimeout time.Duration `envconfig:"POS_BROADCAST_WRITE_TIMEOUT" default:"5s"`
	PingInterval time.Duration `envconfig:"POS_BROADCAST_PING_INTERVAL" default:"30s"`
}

type PaymentConfig struct {
	GatewayTimeout time.Duration `envconfig:"POS_PAYMENT_GATEWAY_TIMEOUT" default:"15s"`
	IdempotencyTTL time.Duration `envconfig:"POS_PAYMENT_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"POS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"POS_AUTO_MIGRATE" default:"false"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) NormalizedEnvironment() string {
	env := strings.TrimSpace(strings.ToLower(s.Environment))
	if env == "" {
		return "sandbox"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if parts[env] == "" {
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
