package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every recognized environment variable is enumerated here; nothing else in
// the codebase reads os.Getenv directly.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	FMP          FMPConfig
	Schwab       SchwabConfig
	AlphaVantage AlphaVantageConfig

	// Pipeline
	Universe UniverseConfig
	Screener ScreenerConfig
	RSI      RSIConfig
	Picks    PicksConfig
	Cron     CronConfig

	// Build identification written into run records
	BuildMarker string

	// Runs stuck in 'running' longer than this are reclaimed as failed
	RunStaleAfter time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection pool
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

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey  string
	BaseURL string
}

// SchwabConfig holds Schwab API configuration.
// Either a fixed access token or a refresh token (with client credentials)
// must be provided for the pick builders and the daily tracker.
type SchwabConfig struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	BaseURL      string
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute float64
	// Free tier allows ~25 requests/day; 0 disables the cap
	MaxRequestsPerDay int
}

// UniverseConfig controls where the candidate ticker set comes from
type UniverseConfig struct {
	Source         string // "csv" or "fmp"
	CSVPath        string
	MaxPerExchange int
}

// ScreenerConfig holds screening gates and score weights
type ScreenerConfig struct {
	MinPrice     float64
	MinMarketCap int64
	MinAvgVolume int64

	// Optional hard RSI gate; missing RSI always passes
	RSIGateEnabled bool

	WeightFundamentals float64
	WeightSentiment    float64
	WeightTrend        float64
	WeightTechnical    float64

	RSIBandLow  float64
	RSIBandHigh float64

	// Number of top candidates copied into the approved universe
	ApprovedTopN int
}

// RSIConfig holds RSI cache parameters
type RSIConfig struct {
	Period      int
	Interval    string
	MaxAgeHours int
}

// PicksConfig holds pick-builder limits
type PicksConfig struct {
	CSPTopN     int
	CCTopN      int
	StrikeCount int
	// Comma-separated tickers for CC dry runs without broker positions
	CCTestTickers string
	// Optional YAML file overriding the built-in strategy rules
	RulesPath string
}

// CronConfig holds cron specs for the scheduler (with-seconds format)
type CronConfig struct {
	Screening   string
	RSIRefresh  string
	CSPPicks    string
	CCPicks     string
	Tracking    string
	Maintenance string
}

// Load reads configuration from environment variables.
// This function is the only caller of os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
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

		FMP: FMPConfig{
			APIKey:  getEnv("FMP_API_KEY", ""),
			BaseURL: getEnv("FMP_BASE_URL", "https://financialmodelingprep.com/stable"),
		},

		Schwab: SchwabConfig{
			ClientID:     getEnv("SCHWAB_CLIENT_ID", ""),
			ClientSecret: getEnv("SCHWAB_CLIENT_SECRET", ""),
			AccessToken:  getEnv("SCHWAB_ACCESS_TOKEN", ""),
			RefreshToken: getEnv("SCHWAB_REFRESH_TOKEN", ""),
			BaseURL:      getEnv("SCHWAB_BASE_URL", "https://api.schwabapi.com"),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:            getEnv("ALPHAVANTAGE_API_KEY", ""),
			BaseURL:           getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			RequestsPerMinute: getEnvAsFloat("ALPHAVANTAGE_RPM", 5.0),
			MaxRequestsPerDay: getEnvAsInt("ALPHAVANTAGE_MAX_PER_DAY", 0),
		},

		Universe: UniverseConfig{
			Source:         getEnv("UNIVERSE_SOURCE", "csv"),
			CSVPath:        getEnv("UNIVERSE_CSV_PATH", "data/universe_us.csv"),
			MaxPerExchange: getEnvAsInt("UNIVERSE_MAX_PER_EXCHANGE", 500),
		},

		Screener: ScreenerConfig{
			MinPrice:           getEnvAsFloat("MIN_PRICE", 5.0),
			MinMarketCap:       getEnvAsInt64("MIN_MARKET_CAP", 2_000_000_000),
			MinAvgVolume:       getEnvAsInt64("MIN_AVG_VOLUME", 1_000_000),
			RSIGateEnabled:     getEnvAsBool("RSI_GATE_ENABLED", false),
			WeightFundamentals: getEnvAsFloat("WEIGHT_FUNDAMENTALS", 0.50),
			WeightSentiment:    getEnvAsFloat("WEIGHT_SENTIMENT", 0.20),
			WeightTrend:        getEnvAsFloat("WEIGHT_TREND", 0.20),
			WeightTechnical:    getEnvAsFloat("WEIGHT_TECHNICAL", 0.10),
			RSIBandLow:         getEnvAsFloat("RSI_BAND_LOW", 30),
			RSIBandHigh:        getEnvAsFloat("RSI_BAND_HIGH", 70),
			ApprovedTopN:       getEnvAsInt("APPROVED_TOP_N", 40),
		},

		RSI: RSIConfig{
			Period:      getEnvAsInt("RSI_PERIOD", 14),
			Interval:    getEnv("RSI_INTERVAL", "daily"),
			MaxAgeHours: getEnvAsInt("RSI_MAX_AGE_HOURS", 24),
		},

		Picks: PicksConfig{
			CSPTopN:       getEnvAsInt("PICKS_N", 25),
			CCTopN:        getEnvAsInt("CC_PICKS_N", 25),
			StrikeCount:   getEnvAsInt("CHAIN_STRIKE_COUNT", 80),
			CCTestTickers: getEnv("CC_TEST_TICKERS", ""),
			RulesPath:     getEnv("WHEEL_RULES_PATH", ""),
		},

		Cron: CronConfig{
			Screening:   getEnv("CRON_SCREENING", "0 0 11 * * MON"),
			RSIRefresh:  getEnv("CRON_RSI_REFRESH", "0 30 9 * * *"),
			CSPPicks:    getEnv("CRON_CSP_PICKS", "0 0 13 * * MON"),
			CCPicks:     getEnv("CRON_CC_PICKS", "0 15 13 * * MON"),
			Tracking:    getEnv("CRON_TRACKING", "0 0 22 * * *"),
			Maintenance: getEnv("CRON_MAINTENANCE", "0 0 1 * * *"),
		},

		BuildMarker:   getEnv("BUILD_MARKER", "local"),
		RunStaleAfter: getEnvAsDuration("RUN_STALE_AFTER", "6h"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	sum := c.Screener.WeightFundamentals + c.Screener.WeightSentiment +
		c.Screener.WeightTrend + c.Screener.WeightTechnical
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("score weights must sum to 1.0 (got %.3f)", sum)
	}

	if c.Screener.MinPrice < 0 {
		return fmt.Errorf("MIN_PRICE cannot be negative")
	}
	if c.Screener.MinMarketCap < 0 {
		return fmt.Errorf("MIN_MARKET_CAP cannot be negative")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		".env.local",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
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
