package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	domaincfg "lorekeeper-backend/domain/config"
)

// Config holds all application configuration
type Config struct {
	// Runtime
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	UserIndexName string `yaml:"user_index_name"` // GSI for user-level queries

	// Persistence selection: "memory" or "dynamodb"
	StoreBackend string `yaml:"store_backend"`

	// Narrator
	NarratorTimeout time.Duration `yaml:"narrator_timeout"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`

	// Domain threshold overrides, applied on top of the compiled defaults
	Domain DomainOverrides `yaml:"domain"`
}

// DomainOverrides carries the subset of domain thresholds operators tune in
// practice. Zero values leave the default in place.
type DomainOverrides struct {
	GraphMaxAgeHours       int     `yaml:"graph_max_age_hours"`
	VoidGapThresholdDays   float64 `yaml:"void_gap_threshold_days"`
	SingletonSurvivalScore float64 `yaml:"singleton_survival_score"`
	PeriodGapDays          float64 `yaml:"period_gap_days"`
}

// LoadConfig loads configuration from environment variables, then overlays
// an optional YAML file named by CONFIG_FILE. Environment variables win.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:     "development",
		LogLevel:        "info",
		AWSRegion:       "us-west-2",
		DynamoDBTable:   "lorekeeper",
		UserIndexName:   "UserTimelineIndex",
		StoreBackend:    "memory",
		NarratorTimeout: 30 * time.Second,
		EnableMetrics:   true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", cfg.DynamoDBTable)
	cfg.UserIndexName = getEnv("USER_INDEX_NAME", cfg.UserIndexName)
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	if seconds := getEnvInt("NARRATOR_TIMEOUT_SECONDS", 0); seconds > 0 {
		cfg.NarratorTimeout = time.Duration(seconds) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "dynamodb":
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}
	if c.StoreBackend == "dynamodb" && c.DynamoDBTable == "" {
		return fmt.Errorf("TABLE_NAME is required for the dynamodb backend")
	}
	return nil
}

// DomainConfig returns the compiled domain defaults with this config's
// overrides applied
func (c *Config) DomainConfig() *domaincfg.DomainConfig {
	cfg := domaincfg.DefaultDomainConfig()
	if c.Domain.GraphMaxAgeHours > 0 {
		cfg.GraphMaxAge = time.Duration(c.Domain.GraphMaxAgeHours) * time.Hour
	}
	if c.Domain.VoidGapThresholdDays > 0 {
		cfg.VoidGapThresholdDays = c.Domain.VoidGapThresholdDays
	}
	if c.Domain.SingletonSurvivalScore > 0 {
		cfg.SingletonSurvivalScore = c.Domain.SingletonSurvivalScore
	}
	if c.Domain.PeriodGapDays > 0 {
		cfg.PeriodGapDays = c.Domain.PeriodGapDays
	}
	return cfg
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
