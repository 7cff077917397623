package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DB        DBConfig
	Telegram  TelegramConfig
	Delivery  DeliveryConfig
	Geocoding GeocodingConfig
	Oracle    OracleConfig
	Payment   PaymentConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Session   SessionConfig
}

// DBConfig is optional: with an empty Host the built-in menu is used.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	AutoMigrate bool
}

func (c DBConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c DBConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

type TelegramConfig struct {
	Token                string  `validate:"required"`
	MaxConcurrentUpdates int     `validate:"gte=1"`
	RateLimitPerSecond   float64 `validate:"gt=0"`
	RateLimitBurst       int     `validate:"gte=1"`
	PhotoMaxBytes        int64   `validate:"gt=0"`
}

type DeliveryConfig struct {
	OriginLat       float64 `validate:"latitude"`
	OriginLon       float64 `validate:"longitude"`
	OriginName      string
	ServiceRadiusKm float64 `validate:"gt=0"`
	// Fee = base + perKm * distance for shared-location addresses.
	CoordinateBaseFee decimal.Decimal
	CoordinatePerKm   decimal.Decimal
	// Fee = base + perKm * distance for typed addresses.
	TextBaseFee          decimal.Decimal
	TextPerKm            decimal.Decimal
	TextMeasuredDistance bool
	DispatchNoticeDelay  time.Duration `validate:"gte=0"`
}

type GeocodingConfig struct {
	BaseURL     string        `validate:"required,url"`
	UserAgent   string        `validate:"required"`
	CountryCode string        `validate:"required,len=2"`
	CountryName string        `validate:"required"`
	Timeout     time.Duration `validate:"gt=0"`
}

type OracleConfig struct {
	Provider     string `validate:"oneof=huggingface gemini none"`
	HFToken      string
	HFModel      string
	HFBaseURL    string
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration `validate:"gt=0"`
}

type PaymentConfig struct {
	QRImageURL  string
	QRImagePath string
	Merchant    string
	Timeout     time.Duration
}

type HTTPConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		errs = append(errs, fmt.Errorf("DB_PORT: %w", err))
	}

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", ""),
			Port:        port,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", "orders"),
			AutoMigrate: getEnvBool("AUTO_MIGRATE", false, &errs),
		},
		Telegram: TelegramConfig{
			Token:                getEnv("TOKEN", ""),
			MaxConcurrentUpdates: getEnvInt("MAX_CONCURRENT_UPDATES", 32, &errs),
			RateLimitPerSecond:   getEnvFloat("CHAT_RATE_PER_SECOND", 2, &errs),
			RateLimitBurst:       getEnvInt("CHAT_RATE_BURST", 5, &errs),
			PhotoMaxBytes:        int64(getEnvInt("PHOTO_MAX_BYTES", 10<<20, &errs)),
		},
		Delivery: DeliveryConfig{
			OriginLat:            getEnvFloat("RESTAURANT_LAT", 5.4164, &errs),
			OriginLon:            getEnvFloat("RESTAURANT_LON", 100.3327, &errs),
			OriginName:           getEnv("RESTAURANT_NAME", "Nasi Kandar House, George Town"),
			ServiceRadiusKm:      getEnvFloat("SERVICE_RADIUS_KM", 50, &errs),
			CoordinateBaseFee:    getEnvDecimal("COORD_BASE_FEE", "2.00", &errs),
			CoordinatePerKm:      getEnvDecimal("COORD_PER_KM", "0.50", &errs),
			TextBaseFee:          getEnvDecimal("TEXT_BASE_FEE", "3.00", &errs),
			TextPerKm:            getEnvDecimal("TEXT_PER_KM", "0.80", &errs),
			TextMeasuredDistance: getEnvBool("TEXT_FEE_MEASURED_DISTANCE", false, &errs),
			DispatchNoticeDelay:  getEnvDuration("DISPATCH_NOTICE_DELAY", 5*time.Second, &errs),
		},
		Geocoding: GeocodingConfig{
			BaseURL:     getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:   getEnv("GEOCODER_USER_AGENT", "nasi-kandar-order-bot/1.0"),
			CountryCode: getEnv("GEOCODER_COUNTRY_CODE", "my"),
			CountryName: getEnv("GEOCODER_COUNTRY_NAME", "Malaysia"),
			Timeout:     getEnvDuration("GEOCODER_TIMEOUT", 8*time.Second, &errs),
		},
		Oracle: OracleConfig{
			Provider:     strings.ToLower(getEnv("ORACLE_PROVIDER", "none")),
			HFToken:      getEnv("HF_TOKEN", ""),
			HFModel:      getEnv("HF_MODEL", "dandelin/vilt-b32-finetuned-vqa"),
			HFBaseURL:    getEnv("HF_BASE_URL", "https://router.huggingface.co/hf-inference/models"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      getEnvDuration("ORACLE_TIMEOUT", 30*time.Second, &errs),
		},
		Payment: PaymentConfig{
			QRImageURL:  getEnv("QR_IMAGE_URL", ""),
			QRImagePath: getEnv("QR_IMAGE_PATH", ""),
			Merchant:    getEnv("QR_MERCHANT", "NASIKANDAR"),
			Timeout:     getEnvDuration("QR_FETCH_TIMEOUT", 10*time.Second, &errs),
		},
		HTTP: HTTPConfig{
			Port: getEnv("PORT", "8080"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Session: SessionConfig{
			IdleTTL:       getEnvDuration("SESSION_IDLE_TTL", 2*time.Hour, &errs),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute, &errs),
		},
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Oracle.Provider {
	case "huggingface":
		if c.Oracle.HFToken == "" {
			return errors.New("config: HF_TOKEN is required when ORACLE_PROVIDER=huggingface")
		}
	case "gemini":
		if c.Oracle.GeminiAPIKey == "" {
			return errors.New("config: GEMINI_API_KEY is required when ORACLE_PROVIDER=gemini")
		}
	}
	for name, v := range map[string]decimal.Decimal{
		"COORD_BASE_FEE": c.Delivery.CoordinateBaseFee,
		"COORD_PER_KM":   c.Delivery.CoordinatePerKm,
		"TEXT_BASE_FEE":  c.Delivery.TextBaseFee,
		"TEXT_PER_KM":    c.Delivery.TextPerKm,
	} {
		if v.IsNegative() {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getEnvFloat(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func getEnvBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func getEnvDecimal(key, def string, errs *[]error) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(getEnv(key, def)))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return decimal.Zero
	}
	return d
}
