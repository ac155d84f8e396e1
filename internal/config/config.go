package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"` // SQLite file with the patients table
	} `yaml:"database"`

	// Training data source, read once at startup
	Training struct {
		Driver      string `yaml:"driver"` // "sqlite" (same file as database.path) or "postgres"
		DSN         string `yaml:"dsn"`    // PostgreSQL URL when driver is postgres
		Table       string `yaml:"table"`
		LabelColumn string `yaml:"label_column"`
	} `yaml:"training"`

	Model struct {
		C         float64 `yaml:"c"`
		Gamma     float64 `yaml:"gamma"` // 0 = scale
		Tolerance float64 `yaml:"tolerance"`
		MaxIter   int     `yaml:"max_iter"`
		CacheRows int     `yaml:"cache_rows"`
	} `yaml:"model"`

	Log struct {
		Level      string `yaml:"level"`
		Encoding   string `yaml:"encoding"` // "console" or "json"
		File       string `yaml:"file"`     // optional, rotated
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from YAML file. A .env file next to the
// working directory is loaded first so ${VARS} in the file can refer to it.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.ApplyDefaults()

	config.Database.Path = os.ExpandEnv(config.Database.Path)
	config.Training.DSN = os.ExpandEnv(config.Training.DSN)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/vkr.db"
	}

	if c.Training.Driver == "" {
		c.Training.Driver = "sqlite"
	}
	if c.Training.Table == "" {
		c.Training.Table = "train_data"
	}
	if c.Training.LabelColumn == "" {
		c.Training.LabelColumn = "target"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
}

// Validate checks values that defaults cannot fix
func (c *Config) Validate() error {
	switch c.Training.Driver {
	case "sqlite":
	case "postgres":
		if c.Training.DSN == "" {
			return errors.New("training.dsn is required when training.driver is postgres")
		}
	default:
		return fmt.Errorf("unsupported training.driver %q", c.Training.Driver)
	}
	if c.Model.C < 0 || c.Model.Gamma < 0 || c.Model.Tolerance < 0 {
		return errors.New("model.c, model.gamma and model.tolerance must not be negative")
	}
	return nil
}
