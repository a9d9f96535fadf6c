package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderGmail = "gmail"
	ProviderSMTP  = "smtp"
	ProviderLog   = "log"
)

// DatabaseConfig selects and tunes the store
type DatabaseConfig struct {
	Driver       string        `yaml:"driver" env:"CARPOOL_DB_DRIVER" validate:"required,oneof=postgres memory"`
	URL          string        `yaml:"url,omitempty" env:"CARPOOL_DATABASE_URL" validate:"required_if=Driver postgres"`
	FixturesPath string        `yaml:"fixturesPath,omitempty" env:"CARPOOL_FIXTURES_PATH"`
	MaxTxRetries int           `yaml:"maxTxRetries,omitempty" env:"CARPOOL_MAX_TX_RETRIES" validate:"min=0,max=20"`
	RetryBackoff time.Duration `yaml:"retryBackoff,omitempty" env:"CARPOOL_RETRY_BACKOFF" validate:"min=0"`
}

// ActivityCacheConfig tunes the activity lookup cache
type ActivityCacheConfig struct {
	Size int           `yaml:"size,omitempty" validate:"min=0"`
	TTL  time.Duration `yaml:"ttl,omitempty" validate:"min=0"`
}

// SMTPConfig holds SMTP server settings
type SMTPConfig struct {
	Host     string `yaml:"host" env:"CARPOOL_SMTP_HOST" validate:"required"`
	Port     int    `yaml:"port" env:"CARPOOL_SMTP_PORT" validate:"required,min=1,max=65535"`
	Username string `yaml:"username,omitempty" env:"CARPOOL_SMTP_USERNAME"`
	Password string `yaml:"password,omitempty" env:"CARPOOL_SMTP_PASSWORD"`
}

// NotificationsConfig selects how cancellation emails are delivered
type NotificationsConfig struct {
	Provider      string      `yaml:"provider" env:"CARPOOL_NOTIFY_PROVIDER" validate:"required,oneof=gmail smtp log"`
	Sender        string      `yaml:"sender,omitempty" env:"CARPOOL_NOTIFY_SENDER" validate:"required_if=Provider smtp,omitempty,email"`
	SenderName    string      `yaml:"senderName,omitempty"`
	GmailUserID   string      `yaml:"gmailUserID,omitempty" validate:"required_if=Provider gmail"`
	SMTP          *SMTPConfig `yaml:"smtp,omitempty" validate:"required_if=Provider smtp"`
	RatePerMinute int         `yaml:"ratePerMinute,omitempty" validate:"min=0"`
	QueueSize     int         `yaml:"queueSize,omitempty" validate:"min=0"`
}

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	ActivityCache ActivityCacheConfig `yaml:"activityCache,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from carpool_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" will look for "carpool_config.test.yaml"
func LoadWithEnv(envName string) (*Config, error) {
	fileName := "carpool_config.yaml"
	if envName != "" {
		fileName = "carpool_config." + envName + ".yaml"
	}

	configPath, err := findFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies
// CARPOOL_* environment variable overrides and validates the result
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Database.Driver == DriverMemory && cfg.Database.FixturesPath != "" {
		if _, err := os.Stat(cfg.Database.FixturesPath); err != nil {
			return fmt.Errorf("invalid database.fixturesPath: %w", err)
		}
	}

	return nil
}

// ApplyDefaults fills unset tuning values
func (cfg *Config) ApplyDefaults() {
	if cfg.Database.MaxTxRetries == 0 {
		cfg.Database.MaxTxRetries = 5
	}
	if cfg.Database.RetryBackoff == 0 {
		cfg.Database.RetryBackoff = 20 * time.Millisecond
	}
	if cfg.ActivityCache.Size == 0 {
		cfg.ActivityCache.Size = 512
	}
	if cfg.ActivityCache.TTL == 0 {
		cfg.ActivityCache.TTL = time.Minute
	}
	if cfg.Notifications.RatePerMinute == 0 {
		cfg.Notifications.RatePerMinute = 20
	}
	if cfg.Notifications.QueueSize == 0 {
		cfg.Notifications.QueueSize = 256
	}
}

// findFile searches for fileName in the current directory and the home directory
func findFile(fileName string) (string, error) {
	if _, err := os.Stat(fileName); err == nil {
		return fileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, fileName)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", fileName)
}
