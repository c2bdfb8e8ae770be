package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"smart_parking_lot/internal/domain"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
	LPREnabled       bool

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisEventStream string

	JWTSecret          string
	JWTExpirationHours time.Duration
	AdminUsername      string
	AdminPassword      string

	LogLevel  string
	LogFormat string

	RateLimitRPS   float64
	RateLimitBurst int

	TicketSigningSecret string
	CORSAllowedOrigins  []string

	Lot LotSettings
}

// LotSettings describes the lot created on first start.
type LotSettings struct {
	Name               string
	RegularSlots       int
	EVSlots            int
	Pricing            string
	RegularHourlyRate  float64
	EVHourlyRate       float64
	MaxStayHours       int
	OverstayMultiplier float64
	EVCanUseRegular    bool
}

// UsesDatabase is false when no DB_HOST is configured; the service then
// keeps everything in memory.
func (c *Config) UsesDatabase() bool {
	return c.DBHost != ""
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// LotConfig converts the default lot settings into the allocator config.
func (c *Config) LotConfig() domain.LotConfig {
	return domain.LotConfig{
		Name:            c.Lot.Name,
		RegularSlots:    c.Lot.RegularSlots,
		EVSlots:         c.Lot.EVSlots,
		EVCanUseRegular: c.Lot.EVCanUseRegular,
		Tariff: domain.Tariff{
			Pricing:            domain.PricingKind(c.Lot.Pricing),
			RegularHourlyRate:  c.Lot.RegularHourlyRate,
			EVHourlyRate:       c.Lot.EVHourlyRate,
			MaxStayHours:       c.Lot.MaxStayHours,
			OverstayMultiplier: c.Lot.OverstayMultiplier,
		},
	}
}

// Load reads .env (if present) and the process environment. A malformed
// numeric or boolean value is an error rather than a silent default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	p := &parser{}
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     p.int("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "parking"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "parking_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:        getEnv("AWS_REGION", "ap-southeast-1"),
		SQSEventQueueURL: getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  getEnv("IOT_MQTT_ENDPOINT", ""),
		LPREnabled:       p.bool("LPR_ENABLED", false),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          p.int("REDIS_DB", 0),
		RedisEventStream: getEnv("REDIS_EVENT_STREAM", "parking:events"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-jwt-secret"),
		JWTExpirationHours: time.Duration(p.int("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RateLimitRPS:   p.float("RATE_LIMIT_RPS", 10),
		RateLimitBurst: p.int("RATE_LIMIT_BURST", 20),

		TicketSigningSecret: getEnv("TICKET_SIGNING_SECRET", "change-me-ticket-secret"),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		Lot: LotSettings{
			Name:               getEnv("LOT_NAME", "Main Lot"),
			RegularSlots:       p.int("LOT_REGULAR_SLOTS", 20),
			EVSlots:            p.int("LOT_EV_SLOTS", 5),
			Pricing:            getEnv("LOT_PRICING", string(domain.PricingStandard)),
			RegularHourlyRate:  p.float("LOT_REGULAR_RATE", domain.DefaultRegularHourlyRate),
			EVHourlyRate:       p.float("LOT_EV_RATE", domain.DefaultEVHourlyRate),
			MaxStayHours:       p.int("LOT_MAX_STAY_HOURS", domain.DefaultMaxStayHours),
			OverstayMultiplier: p.float("LOT_OVERSTAY_MULTIPLIER", domain.DefaultOverstayMultiplier),
			EVCanUseRegular:    p.bool("LOT_EV_CAN_USE_REGULAR", false),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.LotConfig().Validate(); err != nil {
		return nil, fmt.Errorf("config: default lot: %w", err)
	}
	return cfg, nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: %s=%q: %w", key, raw, err)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
