package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port    string `yaml:"port" env:"SERVER_PORT"`
		Mode    string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL string `yaml:"base_url" env:"SERVER_BASE_URL"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		Seed            bool   `yaml:"seed" env:"DB_SEED"`
	} `yaml:"database"`

	SMTP struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
		UseTLS    bool   `yaml:"use_tls" env:"SMTP_USE_TLS"`
	} `yaml:"smtp"`

	Seminar struct {
		// PhDWeight and MScWeight are the per-degree capacity weights used
		// when computing weighted slot occupancy.
		PhDWeight int `yaml:"phd_weight" env:"SEMINAR_PHD_WEIGHT"`
		MScWeight int `yaml:"msc_weight" env:"SEMINAR_MSC_WEIGHT"`
		// ApprovalTokenTTL bounds how long a supervisor approval link stays valid.
		ApprovalTokenTTL string `yaml:"approval_token_ttl" env:"SEMINAR_APPROVAL_TOKEN_TTL"`
		// PromotionTokenTTL bounds the confirm/decline window of a promotion offer.
		PromotionTokenTTL string `yaml:"promotion_token_ttl" env:"SEMINAR_PROMOTION_TOKEN_TTL"`
		// WaitingListLimit caps the number of entries per slot queue (0 = unlimited).
		WaitingListLimit int `yaml:"waiting_list_limit" env:"SEMINAR_WAITING_LIST_LIMIT"`
		// ExpirySweepSchedule is the cron expression for the expiry sweeper job.
		ExpirySweepSchedule string `yaml:"expiry_sweep_schedule" env:"SEMINAR_EXPIRY_SWEEP_SCHEDULE"`
	} `yaml:"seminar"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		// Read file
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML into Config structure
		err = yaml.Unmarshal(file, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	err := loadFromEnv(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"

	// Database defaults
	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "semscan"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	// SMTP defaults (empty credentials mean emails are logged, not sent)
	config.SMTP.Host = "localhost"
	config.SMTP.Port = 587
	config.SMTP.FromName = "SemScan Seminars"
	config.SMTP.FromEmail = "seminars@semscan.local"

	// Seminar defaults: a PhD talk is twice as long as an MSc talk, approval
	// links live for two weeks, promotion offers for one day.
	config.Seminar.PhDWeight = 2
	config.Seminar.MScWeight = 1
	config.Seminar.ApprovalTokenTTL = "336h"
	config.Seminar.PromotionTokenTTL = "24h"
	config.Seminar.WaitingListLimit = 0
	config.Seminar.ExpirySweepSchedule = "0 * * * *"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	// Recursively process the config structure and look for env tags
	err := processStructFields(config)
	if err != nil {
		return err
	}

	return nil
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	// Ensure required fields are set
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.Seminar.PhDWeight <= 0 || config.Seminar.MScWeight <= 0 {
		return fmt.Errorf("seminar degree weights must be positive")
	}

	// Validate token window formats
	if _, err := time.ParseDuration(config.Seminar.ApprovalTokenTTL); err != nil {
		return fmt.Errorf("invalid approval token TTL format: %w", err)
	}

	if _, err := time.ParseDuration(config.Seminar.PromotionTokenTTL); err != nil {
		return fmt.Errorf("invalid promotion token TTL format: %w", err)
	}

	if config.Seminar.WaitingListLimit < 0 {
		return fmt.Errorf("waiting list limit cannot be negative")
	}

	return nil
}

// ApprovalTokenTTL returns the parsed approval token lifetime.
func (c *Config) ApprovalTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Seminar.ApprovalTokenTTL)
	if err != nil {
		return 336 * time.Hour
	}
	return d
}

// PromotionTokenTTL returns the parsed promotion offer lifetime.
func (c *Config) PromotionTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Seminar.PromotionTokenTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool gets an environment variable as a boolean or returns a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	// Convert string to lowercase for checking
	valueLower := strings.ToLower(valueStr)
	if valueLower == "true" || valueLower == "1" || valueLower == "yes" {
		return true
	}
	if valueLower == "false" || valueLower == "0" || valueLower == "no" {
		return false
	}

	return defaultValue
}

// GetEnvAsDuration gets an environment variable as a duration or returns a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
