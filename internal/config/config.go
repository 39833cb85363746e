package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIBaseURL is the public ticketing API used when API_BASE_URL is unset.
const DefaultAPIBaseURL = "https://f1experiences.co.uk/api/public"

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Session  SessionConfig
	Store    StoreConfig
	Poll     PollConfig
	Receipts ReceiptConfig
	R2       R2Config
	Log      LogConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Env              string
	AllowedOrigins   []string // cross-origin storefront frontends
	SubmitRateLimit  int      // reservation and email requests per window per client
	SubmitRateWindow time.Duration
}

// APIConfig describes the external ticketing backend.
type APIConfig struct {
	BaseURL      string
	EventsURL    string // legacy events feed; empty means use the organiser feed
	UseMockOrder bool
	Timeout      time.Duration
	MockDelay    time.Duration
	StaleTime    time.Duration
}

type SessionConfig struct {
	Secret string
	MaxAge int
}

// StoreConfig selects where booking selections, the order cache and the
// mock reservation log are persisted.
type StoreConfig struct {
	Driver        string // memory, file, redis
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type PollConfig struct {
	Interval time.Duration
}

type ReceiptConfig struct {
	MaxBytes   int64
	Archive    string // none, local, r2
	ArchiveDir string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	Region          string
	Endpoint        string
}

type LogConfig struct {
	Level  string
	Format string // json, console
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			Host:             getEnv("HOST", "localhost"),
			Env:              getEnv("ENV", "development"),
			AllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS"),
			SubmitRateLimit:  getEnvAsInt("SUBMIT_RATE_LIMIT", 10),
			SubmitRateWindow: getEnvAsDuration("SUBMIT_RATE_WINDOW", time.Minute),
		},
		API: APIConfig{
			BaseURL:      strings.TrimSuffix(getEnv("API_BASE_URL", DefaultAPIBaseURL), "/"),
			EventsURL:    getEnv("EVENTS_API_URL", ""),
			UseMockOrder: getEnvAsBool("USE_MOCK_ORDER_SERVICE", false),
			Timeout:      getEnvAsDuration("API_TIMEOUT", 30*time.Second),
			MockDelay:    getEnvAsDuration("MOCK_ORDER_DELAY", 650*time.Millisecond),
			StaleTime:    getEnvAsDuration("EVENTS_STALE_TIME", time.Minute),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
			MaxAge: getEnvAsInt("SESSION_MAX_AGE", 86400*30),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnv("STATE_STORE", "memory")),
			Dir:           getEnv("STATE_DIR", "data/state"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           getEnvAsDuration("STATE_TTL", 30*24*time.Hour),
		},
		Poll: PollConfig{
			Interval: getEnvAsDuration("PAYMENT_POLL_INTERVAL", 5*time.Second),
		},
		Receipts: ReceiptConfig{
			MaxBytes:   int64(getEnvAsInt("RECEIPT_MAX_BYTES", 8*1024*1024)),
			Archive:    strings.ToLower(getEnv("RECEIPT_ARCHIVE", "none")),
			ArchiveDir: getEnv("RECEIPT_ARCHIVE_DIR", "uploads/receipts"),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", "order-receipts"),
			PublicURL:       getEnv("R2_PUBLIC_URL", ""),
			Region:          getEnv("R2_REGION", "auto"),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks settings that would otherwise fail on first use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.API.BaseURL)
	}

	switch c.Store.Driver {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown STATE_STORE driver %q", c.Store.Driver)
	}

	switch c.Receipts.Archive {
	case "none", "local", "r2":
	default:
		return fmt.Errorf("unknown RECEIPT_ARCHIVE %q", c.Receipts.Archive)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("PAYMENT_POLL_INTERVAL must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// BackendOrigin returns scheme://host of the API base URL. Calendar and
// payment-instruction downloads live at the origin, outside the /api prefix.
func (c *Config) BackendOrigin() string {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return c.API.BaseURL
	}
	return u.Scheme + "://" + u.Host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s") or plain milliseconds ("650").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
