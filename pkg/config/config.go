package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the process reads at start-up.
// Environment variables are only ever read through Load; components receive
// the sub-structs they need by value and never look at the environment.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	API APIConfig

	// Storage backend: "postgres" (durable) or "memory" (dry runs)
	StoreBackend string

	Database DatabaseConfig
	Redis    RedisConfig

	// Scoring knobs
	Heat   HeatConfig
	Profit ProfitConfig

	// Acquisition sources. MarketSource picks where price and supply come
	// from: "watchcharts" or "chrono24".
	MarketSource string
	WatchCharts  WatchChartsConfig
	Chrono24     Chrono24Config
	Ebay         EbayConfig

	// Run inputs/outputs
	UniversePath string
	ReportDir    string
	Schedule     string // cron spec with seconds

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// APIConfig holds the read API server settings
type APIConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// HeatConfig holds the heat classification and history settings.
type HeatConfig struct {
	MinListings  int
	Threshold    float64
	LookbackDays int
	WeightsPath  string `json:"-"` // optional YAML override of the component weights
}

// ProfitConfig holds the fee/margin model for the max-bid overlay.
type ProfitConfig struct {
	TargetMarginLow   float64
	TargetMarginHigh  float64
	ListingFeeRate    float64
	PaymentFeeRate    float64
	MiscBufferRate    float64
	FixedShippingCost float64
}

// WatchChartsConfig holds WatchCharts API settings
type WatchChartsConfig struct {
	APIKey    string
	BaseURL   string
	RateLimit int // requests per second
}

// Chrono24Config holds Chrono24 search page settings
type Chrono24Config struct {
	BaseURL         string
	UserAgent       string
	RequestInterval time.Duration // minimum gap between page fetches
}

// EbayConfig holds eBay Browse API settings
type EbayConfig struct {
	OAuthToken string
	BaseURL    string
	RateLimit  int // requests per second
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:         getEnv("PORT", "8089"),
		Env:          getEnv("ENV", "development"),
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),

		API: APIConfig{
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "60s"),
			IdleTimeout:     getEnvAsDuration("API_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", "30s"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Heat: HeatConfig{
			MinListings:  getEnvAsInt("MIN_LISTINGS", 5),
			Threshold:    getEnvAsFloat("HEAT_THRESHOLD", 0.75),
			LookbackDays: getEnvAsInt("LOOKBACK_DAYS", 90),
			WeightsPath:  getEnv("HEAT_WEIGHTS_PATH", ""),
		},

		Profit: ProfitConfig{
			TargetMarginLow:   getEnvAsFloat("TARGET_MARGIN_LOW", 0.08),
			TargetMarginHigh:  getEnvAsFloat("TARGET_MARGIN_HIGH", 0.10),
			ListingFeeRate:    getEnvAsFloat("LISTING_FEE_RATE", 0.065),
			PaymentFeeRate:    getEnvAsFloat("PAYMENT_FEE_RATE", 0.029),
			MiscBufferRate:    getEnvAsFloat("MISC_BUFFER_RATE", 0.01),
			FixedShippingCost: getEnvAsFloat("FIXED_SHIPPING_COST", 100.0),
		},

		WatchCharts: WatchChartsConfig{
			APIKey:    getEnv("WATCHCHARTS_API_KEY", ""),
			BaseURL:   getEnv("WATCHCHARTS_BASE_URL", "https://api.watchcharts.com/v3"),
			RateLimit: getEnvAsInt("WATCHCHARTS_RATE_LIMIT", 2),
		},

		MarketSource: getEnv("MARKET_SOURCE", "watchcharts"),

		Chrono24: Chrono24Config{
			BaseURL:         getEnv("CHRONO24_BASE_URL", "https://www.chrono24.com"),
			UserAgent:       getEnv("CHRONO24_USER_AGENT", "watchheat/1.0"),
			RequestInterval: getEnvAsDuration("CHRONO24_REQUEST_INTERVAL", "5s"),
		},

		Ebay: EbayConfig{
			OAuthToken: getEnv("EBAY_OAUTH_TOKEN", ""),
			BaseURL:    getEnv("EBAY_BASE_URL", "https://api.ebay.com/buy/browse/v1"),
			RateLimit:  getEnvAsInt("EBAY_RATE_LIMIT", 5),
		},

		UniversePath: getEnv("UNIVERSE_PATH", "universe.csv"),
		ReportDir:    getEnv("REPORT_DIR", "data"),
		Schedule:     getEnv("HEAT_SCHEDULE", "0 30 6 * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	cfg.API.Port = cfg.Port

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set and in range
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.StoreBackend {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: postgres, memory")
	}

	if c.Heat.MinListings < 0 {
		return fmt.Errorf("MIN_LISTINGS must be >= 0")
	}
	if c.Heat.Threshold <= 0 || c.Heat.Threshold >= 1 {
		return fmt.Errorf("HEAT_THRESHOLD must be in (0, 1)")
	}
	if c.Heat.LookbackDays < 90 {
		return fmt.Errorf("LOOKBACK_DAYS must be >= 90 (the z-score window)")
	}

	if c.API.ReadTimeout <= 0 || c.API.WriteTimeout <= 0 || c.API.ShutdownTimeout <= 0 {
		return fmt.Errorf("API_READ_TIMEOUT, API_WRITE_TIMEOUT and API_SHUTDOWN_TIMEOUT must be > 0")
	}

	switch c.MarketSource {
	case "watchcharts", "chrono24":
	default:
		return fmt.Errorf("MARKET_SOURCE must be one of: watchcharts, chrono24")
	}
	if c.Chrono24.RequestInterval < 0 {
		return fmt.Errorf("CHRONO24_REQUEST_INTERVAL must be >= 0")
	}

	p := c.Profit
	if p.TargetMarginLow < 0 || p.TargetMarginLow >= 1 || p.TargetMarginHigh < 0 || p.TargetMarginHigh >= 1 {
		return fmt.Errorf("TARGET_MARGIN_LOW/HIGH must be in [0, 1)")
	}
	if p.TargetMarginLow > p.TargetMarginHigh {
		return fmt.Errorf("TARGET_MARGIN_LOW must be <= TARGET_MARGIN_HIGH")
	}
	if p.ListingFeeRate < 0 || p.PaymentFeeRate < 0 || p.MiscBufferRate < 0 {
		return fmt.Errorf("fee rates must be >= 0")
	}
	if p.FixedShippingCost < 0 {
		return fmt.Errorf("FIXED_SHIPPING_COST must be >= 0")
	}

	return nil
}

// loadEnvFile tries to load .env from the usual locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			// existing environment wins over the file
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
