// Package config loads the directory service settings from a YAML file,
// an optional .env file and environment variables, in increasing order of
// precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cordigram/directory/internal/directory/db"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its YAML file when no path is
// given.
const DefaultPath = "internal/directory/config/config.yaml"

// Config struct for YAML configuration.
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`

	KafkaBrokers      []string `yaml:"KAFKA_BROKERS"`
	Topic             string   `yaml:"TOPIC"`
	ConsumerGroup     string   `yaml:"CONSUMER_GROUP"`
	ReconcileOnEvents bool     `yaml:"RECONCILE_ON_EVENTS"`

	JWTSecret      string        `yaml:"JWT_SECRET"`
	ReportCooldown time.Duration `yaml:"REPORT_COOLDOWN"`
	SearchRPS      float64       `yaml:"SEARCH_RPS"`
	SearchBurst    int           `yaml:"SEARCH_BURST"`
}

// Load reads path (DefaultPath when empty), then applies .env and process
// environment overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:   c.DBDriver,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

func (c *Config) applyEnv() error {
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBSSLMode, "DB_SSLMODE")
	setString(&c.Topic, "TOPIC")
	setString(&c.ConsumerGroup, "CONSUMER_GROUP")
	setString(&c.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}

	for key, dst := range map[string]*int{
		"GRPC_PORT":    &c.GRPCPort,
		"HTTP_PORT":    &c.HTTPPort,
		"DB_PORT":      &c.DBPort,
		"SEARCH_BURST": &c.SearchBurst,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := os.Getenv("SEARCH_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SEARCH_RPS: %w", err)
		}
		c.SearchRPS = rps
	}
	if v := os.Getenv("REPORT_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REPORT_COOLDOWN: %w", err)
		}
		c.ReportCooldown = d
	}
	if v := os.Getenv("RECONCILE_ON_EVENTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RECONCILE_ON_EVENTS: %w", err)
		}
		c.ReconcileOnEvents = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.GRPCPort == 0 {
		c.GRPCPort = 50051
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBPort == 0 {
		c.DBPort = 5432
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.Topic == "" {
		c.Topic = "directory.events"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "directory-reconciler"
	}
	if c.ReportCooldown == 0 {
		c.ReportCooldown = 10 * time.Minute
	}
	if c.SearchRPS == 0 {
		c.SearchRPS = 20
	}
	if c.SearchBurst == 0 {
		c.SearchBurst = 40
	}
}

func (c *Config) validate() error {
	switch {
	case c.DBDriver != "postgres" && c.DBDriver != "sqlite":
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET is required")
	case c.ReportCooldown < 0:
		return fmt.Errorf("REPORT_COOLDOWN must not be negative")
	case c.SearchRPS < 0 || c.SearchBurst < 0:
		return fmt.Errorf("SEARCH_RPS and SEARCH_BURST must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
