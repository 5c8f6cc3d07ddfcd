package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

const PROD_STRING = "prod"

const (
	PaymentProviderMercadoPago = "mercadopago"
	PaymentProviderFake        = "fake"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	LogLevel          string
	DBDSN             string
	DBMaxConns        int
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Scheduling
	Location        *time.Location
	SlotGranularity int
	BusinessHours   []grid.Range
	LeadMinutes     int

	// Booking fee and payment
	BookingFeeCents            int64
	BookingCurrency            string
	StudioPixKey               string
	PublicAppURL               string
	PaymentProvider            string
	MercadoPagoAccessToken     string
	MercadoPagoWebhookSecret   string
	MercadoPagoBaseURL         string
	MercadoPagoNotificationURL string
	PaymentExpiry              time.Duration

	// Shared secrets for studio staff and the scheduler
	AdminSecret string
	CronSecret  string

	// Notifications
	ZAPIInstanceID  string
	ZAPIToken       string
	ZAPIClientToken string
	ZAPIBaseURL     string
	StudioName      string
	StudioWhatsApp  string
	NotifyTimeout   time.Duration
	RabbitMQURL     string
	NotifyQueue     string
	NotifyPrefetch  int

	// Rate limiting
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	RateLimitEnabled        bool
	RateLimitCapacity       int
	RateLimitRefillTokens   int
	RateLimitRefillInterval time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if cfg.DBMaxConns, err = getEnvAsInt("DB_MAX_CONNS", 0); err != nil {
		return nil, err
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	// Studio clock and grid
	tz := getEnv("APP_TIMEZONE", "America/Sao_Paulo")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", tz, err)
	}
	if cfg.SlotGranularity, err = getEnvAsInt("SLOT_GRANULARITY_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.BusinessHours, err = grid.ParseRanges(getEnv("BUSINESS_HOURS", "08:00-12:00,13:00-20:00")); err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_HOURS: %w", err)
	}
	if cfg.LeadMinutes, err = getEnvAsInt("LEAD_MINUTES", 30); err != nil {
		return nil, err
	}

	// Booking fee and payment gateway
	fee, err := getEnvAsInt("BOOKING_FEE_CENTS", 3000)
	if err != nil {
		return nil, err
	}
	cfg.BookingFeeCents = int64(fee)
	cfg.BookingCurrency = getEnv("BOOKING_CURRENCY", "BRL")
	cfg.StudioPixKey = getEnv("STUDIO_PIX_KEY", "")
	cfg.PublicAppURL = getEnv("PUBLIC_APP_URL", "")

	cfg.PaymentProvider = strings.ToLower(getEnv("PAYMENT_PROVIDER", PaymentProviderMercadoPago))
	switch cfg.PaymentProvider {
	case PaymentProviderMercadoPago, PaymentProviderFake:
	default:
		return nil, fmt.Errorf("invalid PAYMENT_PROVIDER %q", cfg.PaymentProvider)
	}
	if cfg.IsProduction && cfg.PaymentProvider == PaymentProviderFake {
		return nil, fmt.Errorf("PAYMENT_PROVIDER=fake is not allowed in production")
	}
	cfg.MercadoPagoAccessToken = getEnv("MERCADOPAGO_ACCESS_TOKEN", "")
	cfg.MercadoPagoWebhookSecret = getEnv("MERCADOPAGO_WEBHOOK_SECRET", "")
	cfg.MercadoPagoBaseURL = getEnv("MERCADOPAGO_BASE_URL", "")
	cfg.MercadoPagoNotificationURL = getEnv("MERCADOPAGO_NOTIFICATION_URL", "")
	if cfg.PaymentExpiry, err = getEnvAsDuration("PAYMENT_EXPIRY", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.AdminSecret = getEnv("ADMIN_SECRET", "")
	cfg.CronSecret = getEnv("CRON_SECRET", "")

	// Notifications
	cfg.ZAPIInstanceID = getEnv("ZAPI_INSTANCE_ID", "")
	cfg.ZAPIToken = getEnv("ZAPI_TOKEN", "")
	cfg.ZAPIClientToken = getEnv("ZAPI_CLIENT_TOKEN", "")
	cfg.ZAPIBaseURL = getEnv("ZAPI_BASE_URL", "")
	cfg.StudioName = getEnv("STUDIO_NAME", "Studio Flow")
	cfg.StudioWhatsApp = getEnv("STUDIO_WHATSAPP", "")
	if cfg.NotifyTimeout, err = getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", "")
	cfg.NotifyQueue = getEnv("NOTIFY_QUEUE", "booking.notifications")
	if cfg.NotifyPrefetch, err = getEnvAsInt("NOTIFY_PREFETCH", 10); err != nil {
		return nil, err
	}

	// Rate limiting (disabled without Redis)
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitEnabled, err = getEnvAsBool("RATE_LIMIT_ENABLED", cfg.RedisAddr != ""); err != nil {
		return nil, err
	}
	if cfg.RateLimitCapacity, err = getEnvAsInt("RATE_LIMIT_CAPACITY", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitRefillTokens, err = getEnvAsInt("RATE_LIMIT_REFILL_TOKENS", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitRefillInterval, err = getEnvAsDuration("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDSN reads only DB_DSN, for tools that need nothing else.
func LoadDSN() (string, error) {
	loadDotEnv()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return "", fmt.Errorf("DB_DSN is required")
	}
	return dsn, nil
}

func loadDotEnv() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env file: %v", err)
	}
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}
	return val, nil
}
