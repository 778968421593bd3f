package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Orders   OrdersConfig
	Payments PaymentsConfig
	Payouts  PayoutsConfig
	Courier  CourierConfig
	Workers  WorkersConfig
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
	Env          string `envconfig:"BRANDCART_APP_ENV" required:"true"`
	Port         string `envconfig:"BRANDCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRANDCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRANDCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BRANDCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BRANDCART_DB_DSN"`
	Driver string `envconfig:"BRANDCART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BRANDCART_DB_HOST"`
	Port     int    `envconfig:"BRANDCART_DB_PORT" default:"5432"`
	User     string `envconfig:"BRANDCART_DB_USER"`
	Password string `envconfig:"BRANDCART_DB_PASSWORD"`
	Name     string `envconfig:"BRANDCART_DB_NAME"`
	SSLMode  string `envconfig:"BRANDCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRANDCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRANDCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRANDCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRANDCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRANDCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRANDCART_REDIS_ADDR"`
	Password     string        `envconfig:"BRANDCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRANDCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRANDCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRANDCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRANDCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRANDCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRANDCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OrdersConfig carries the platform policy knobs for the order lifecycle.
type OrdersConfig struct {
	PlatformFeePaise      int64         `envconfig:"BRANDCART_PLATFORM_FEE_PAISE" default:"1000"`
	MaxCODOrderValuePaise int64         `envconfig:"BRANDCART_MAX_COD_ORDER_VALUE_PAISE" default:"1000000"`
	MaxDailyCODOrders     int64         `envconfig:"BRANDCART_MAX_DAILY_COD_ORDERS" default:"100"`
	CODRTOPenaltyPaise    int64         `envconfig:"BRANDCART_COD_RTO_PENALTY_PAISE" default:"15000"`
	CODRTOMaxAllowed      int           `envconfig:"BRANDCART_COD_RTO_MAX_ALLOWED" default:"2"`
	RTOCommissionLock     bool          `envconfig:"BRANDCART_RTO_COMMISSION_LOCK" default:"true"`
	ReturnWindow          time.Duration `envconfig:"BRANDCART_RETURN_WINDOW" default:"168h"`
	SellerActionWindow    time.Duration `envconfig:"BRANDCART_SELLER_ACTION_WINDOW" default:"48h"`
	DeliveryOTPExpiry     time.Duration `envconfig:"BRANDCART_DELIVERY_OTP_EXPIRY" default:"30m"`
	OnlinePaymentTimeout  time.Duration `envconfig:"BRANDCART_ONLINE_PAYMENT_TIMEOUT" default:"15m"`
	ReserveHoldPeriod     time.Duration `envconfig:"BRANDCART_RESERVE_HOLD_PERIOD" default:"168h"`
	CreateRateLimit       int64         `envconfig:"BRANDCART_CREATE_ORDER_RATE_LIMIT" default:"5"`
	CreateRateWindow      time.Duration `envconfig:"BRANDCART_CREATE_ORDER_RATE_WINDOW" default:"1m"`
}

type PaymentsConfig struct {
	KeyID         string `envconfig:"BRANDCART_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"BRANDCART_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"BRANDCART_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"BRANDCART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
}

type PayoutsConfig struct {
	Provider      string `envconfig:"BRANDCART_PAYOUT_PROVIDER" default:"razorpayx"`
	KeyID         string `envconfig:"BRANDCART_RAZORPAYX_KEY_ID"`
	KeySecret     string `envconfig:"BRANDCART_RAZORPAYX_KEY_SECRET"`
	AccountNumber string `envconfig:"BRANDCART_RAZORPAYX_ACCOUNT_NUMBER"`
	WebhookSecret string `envconfig:"BRANDCART_RAZORPAYX_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"BRANDCART_RAZORPAYX_BASE_URL" default:"https://api.razorpay.com/v1"`
}

type CourierConfig struct {
	WebhookSecret string `envconfig:"BRANDCART_DELIVERY_WEBHOOK_SECRET"`
}

// WorkersConfig controls background reconciler cadence.
type WorkersConfig struct {
	SettlementInterval     time.Duration `envconfig:"BRANDCART_SETTLEMENT_INTERVAL" default:"30m"`
	ReserveReleaseInterval time.Duration `envconfig:"BRANDCART_RESERVE_RELEASE_INTERVAL" default:"1h"`
	ReturnRefundInterval   time.Duration `envconfig:"BRANDCART_RETURN_REFUND_INTERVAL" default:"15m"`
	ReturnDeadlineInterval time.Duration `envconfig:"BRANDCART_RETURN_DEADLINE_INTERVAL" default:"10m"`
	OrderExpiryInterval    time.Duration `envconfig:"BRANDCART_ORDER_EXPIRY_INTERVAL" default:"5m"`
	ProbationInterval      time.Duration `envconfig:"BRANDCART_PROBATION_INTERVAL" default:"1h"`
	RetentionInterval      time.Duration `envconfig:"BRANDCART_IDEMPOTENCY_RETENTION_INTERVAL" default:"1h"`
	LockTTL                time.Duration `envconfig:"BRANDCART_WORKER_LOCK_TTL" default:"2h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"BRANDCART_DB_HOST": db.Host,
		"BRANDCART_DB_USER": db.User,
		"BRANDCART_DB_NAME": db.Name,
	}
	for _, key := range []string{"BRANDCART_DB_HOST", "BRANDCART_DB_USER", "BRANDCART_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either BRANDCART_DB_DSN or %s are required", strings.Join(missing, ", "))
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
