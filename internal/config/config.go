package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	PublicBaseURL  string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Booking
	BookingTokenTTL     time.Duration
	SlotOfferCount      int
	DefaultSlotDuration int    // minutes
	DefaultOfferType    string // appointment type for automatic offers
	ScheduleTimezone    *time.Location

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// AWS S3 (property photos)
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	PhotoBaseS3URL     string
	PhotoMaxDimension  int
	PhotoMaxSizeMB     int

	// App Defaults
	AppName string

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load reads configuration from environment variables. RunMode comes from
// the command line, so it is passed in.
func Load(runMode string) (*Config, error) {
	// Load .env if present; absence is fine in production.
	godotenv.Load()

	cfg := &Config{RunMode: runMode}

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}
	getIntEnv := func(key, defaultValue string) (int, error) {
		n, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return n, nil
	}

	var err error
	if cfg.MongoURI, err = getRequiredEnv("MONGO_URI"); err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "rentema")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "http://localhost:8080")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@rentema.example.com")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.PhotoBaseS3URL = getEnv("PHOTO_BASE_S3_URL", "")
	cfg.AppName = getEnv("APP_NAME", "Rentema")

	if cfg.RedisDB, err = getIntEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.SmtpPort, err = getIntEnv("SMTP_PORT", "587"); err != nil {
		return nil, err
	}

	jwtTTLSeconds, err := getIntEnv("JWT_TTL_SECONDS", "3600")
	if err != nil {
		return nil, err
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	tokenTTLHours, err := getIntEnv("BOOKING_TOKEN_TTL_HOURS", "72")
	if err != nil {
		return nil, err
	}
	cfg.BookingTokenTTL = time.Duration(tokenTTLHours) * time.Hour

	if cfg.SlotOfferCount, err = getIntEnv("SLOT_OFFER_COUNT", "5"); err != nil {
		return nil, err
	}
	if cfg.DefaultSlotDuration, err = getIntEnv("DEFAULT_SLOT_DURATION_MINUTES", "30"); err != nil {
		return nil, err
	}
	cfg.DefaultOfferType = getEnv("DEFAULT_OFFER_TYPE", "tour")

	tzName := getEnv("SCHEDULE_TIMEZONE", "Local")
	if tzName == "Local" {
		cfg.ScheduleTimezone = time.Local
	} else if cfg.ScheduleTimezone, err = time.LoadLocation(tzName); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}

	if cfg.PhotoMaxDimension, err = getIntEnv("PHOTO_MAX_DIMENSION", "2048"); err != nil {
		return nil, err
	}
	if cfg.PhotoMaxSizeMB, err = getIntEnv("PHOTO_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}

	if cfg.RateLimitBucketSize, err = getIntEnv("RATE_LIMIT_BUCKET_SIZE", "8"); err != nil {
		return nil, err
	}
	if cfg.RateLimitRefillRate, err = getIntEnv("RATE_LIMIT_REFILL_RATE", "4"); err != nil {
		return nil, err
	}

	return cfg, nil
}
