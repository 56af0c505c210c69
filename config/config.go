package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"casino/database"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string
	Store        string // "postgres" or "memory"

	// Game configuration
	StartingBalance      int64
	BlackjackDecks       int
	SlotStake            int64
	RevealDealerHoleCard bool // expose the dealer's hole card before the round settles
	BigWinThreshold      int64
	RouletteHistorySize  int

	// Integrations, each optional
	NATSServers      string
	RedisURL         string
	DiscordToken     string
	DiscordChannelID string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
	LogLevel    string
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Load reads configuration without touching the singleton
func Load() (*Config, error) {
	return load()
}

// Set installs cfg as the global configuration
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		Store:        getEnvWithDefault("STORE", StorePostgres),

		// Games
		StartingBalance:      getInt64("STARTING_BALANCE", 1000),
		BlackjackDecks:       int(getInt64("BLACKJACK_DECKS", 6)),
		SlotStake:            getInt64("SLOT_STAKE", 1),
		RevealDealerHoleCard: getBool("REVEAL_DEALER_HOLE_CARD", true),
		BigWinThreshold:      getInt64("BIG_WIN_THRESHOLD", 500),
		RouletteHistorySize:  int(getInt64("ROULETTE_HISTORY_SIZE", 10)),

		// Integrations
		NATSServers:      os.Getenv("NATS_SERVERS"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// OpenTelemetry
		OTelEnabled:              getBool("OTEL_ENABLED", false),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "casino"),
		OTelExportIntervalMillis: int(getInt64("OTEL_EXPORT_INTERVAL_MS", 30000)),

		// Environment
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	if c.Environment != "test" && c.Store == StorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE cannot be negative")
	}
	if c.BlackjackDecks <= 0 {
		return fmt.Errorf("BLACKJACK_DECKS must be positive")
	}
	if c.SlotStake <= 0 {
		return fmt.Errorf("SLOT_STAKE must be positive")
	}
	if c.RouletteHistorySize < 0 {
		return fmt.Errorf("ROULETTE_HISTORY_SIZE cannot be negative")
	}
	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}

	switch c.OTelExporterType {
	case "console", "otlp", "none":
	default:
		return fmt.Errorf("unknown OTEL_EXPORTER_TYPE %q", c.OTelExporterType)
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Store:                StoreMemory,
		StartingBalance:      1000,
		BlackjackDecks:       6,
		SlotStake:            1,
		RevealDealerHoleCard: true,
		BigWinThreshold:      500,
		RouletteHistorySize:  10,
		OTelExporterType:     "none",
		OTelServiceName:      "casino-test",
		Environment:          "test",
		LogLevel:             "debug",
	}
}
