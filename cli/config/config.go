// Package config provides configuration management for the ledger CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the ledger configuration file.
type Config struct {
	// Version of the config file format
	Version string `yaml:"version"`

	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	EventStore EventStoreConfig `yaml:"event_store"`
	Logging    LoggingConfig    `yaml:"logging"`
	Accounts   AccountsConfig   `yaml:"accounts"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080".
	Address string `yaml:"address"`

	// Mode is the gin mode (debug, release, test).
	Mode string `yaml:"mode"`

	// AllowOrigins enables CORS for the listed origins.
	AllowOrigins []string `yaml:"allow_origins,omitempty"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is the database driver (postgres, memory)
	Driver string `yaml:"driver"`

	// URL is the database connection string. ${VAR} references are expanded.
	URL string `yaml:"url,omitempty"`

	// Schema is the database schema holding the aggregates and events tables.
	Schema string `yaml:"schema"`
}

// EventStoreConfig contains event store settings.
type EventStoreConfig struct {
	// Serializer is the event payload encoding (json, msgpack, protobuf).
	Serializer string `yaml:"serializer"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Mode is development or production.
	Mode string `yaml:"mode"`
}

// AccountsConfig contains defaults for new accounts.
type AccountsConfig struct {
	// DefaultMaximumDebt is given to every account opened for a client.
	DefaultMaximumDebt MoneyConfig `yaml:"default_maximum_debt"`
}

// MoneyConfig is a dollars and cents pair.
type MoneyConfig struct {
	Dollars int64 `yaml:"dollars"`
	Cents   int64 `yaml:"cents"`
}

// KafkaConfig contains event publishing and CDC consumption settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`

	// Publish sends committed events to Topic.
	Publish bool `yaml:"publish"`

	// Consume reads Topic and runs the side-effect handlers from it instead
	// of in-process.
	Consume bool `yaml:"consume"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	MetricsEnabled   bool   `yaml:"metrics_enabled"`
	MetricsNamespace string `yaml:"metrics_namespace"`
	TracingEnabled   bool   `yaml:"tracing_enabled"`
	ServiceName      string `yaml:"service_name"`
}

// Supported values.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	SerializerJSON     = "json"
	SerializerMsgpack  = "msgpack"
	SerializerProtobuf = "protobuf"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Address: ":8080",
			Mode:    "release",
		},
		Database: DatabaseConfig{
			Driver: DriverPostgres,
			URL:    "${DATABASE_URL}",
			Schema: "ledger",
		},
		EventStore: EventStoreConfig{
			Serializer: SerializerJSON,
		},
		Logging: LoggingConfig{
			Mode: "production",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "ledger.events",
			GroupID: "ledger",
			Publish: true,
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:   true,
			MetricsNamespace: "ledger",
			ServiceName:      "ledger",
		},
	}
}

// ConfigFileName is the default config file name
const ConfigFileName = "ledger.yaml"

// Load loads configuration from the given directory
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file. Fields missing from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves configuration to the given directory
func (c *Config) Save(dir string) error {
	return c.SaveFile(filepath.Join(dir, ConfigFileName))
}

// SaveFile saves configuration to a specific file
func (c *Config) SaveFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Exists checks if a config file exists in the directory
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindConfig searches for a config file starting from dir and moving up
func FindConfig(dir string) (string, *Config, error) {
	current := dir
	for {
		if Exists(current) {
			cfg, err := Load(current)
			if err != nil {
				return "", nil, err
			}
			return current, cfg, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", nil, os.ErrNotExist
		}
		current = parent
	}
}

// DatabaseURL returns the database URL with ${VAR} references expanded.
// An unset variable expands to the empty string.
func (c *Config) DatabaseURL() string {
	return os.ExpandEnv(c.Database.URL)
}

// KafkaBrokers returns the broker list with ${VAR} references expanded.
// A single entry may expand to a comma separated list.
func (c *Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range c.Kafka.Brokers {
		for _, part := range strings.Split(os.ExpandEnv(b), ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	return brokers
}

// Validate checks the configuration and returns one message per problem.
func (c *Config) Validate() []string {
	var errors []string

	if c.Server.Address == "" {
		errors = append(errors, "server.address is required")
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		errors = append(errors, "server.mode must be 'debug', 'release' or 'test'")
	}

	switch c.Database.Driver {
	case DriverPostgres, "postgresql":
		if c.DatabaseURL() == "" {
			errors = append(errors, "database.url is required for postgres driver")
		}
		if c.Database.Schema == "" {
			errors = append(errors, "database.schema is required for postgres driver")
		}
	case DriverMemory:
	case "":
		errors = append(errors, "database.driver is required")
	default:
		errors = append(errors, "database.driver must be 'postgres' or 'memory'")
	}

	switch c.EventStore.Serializer {
	case SerializerJSON, SerializerMsgpack, SerializerProtobuf:
	default:
		errors = append(errors, "event_store.serializer must be 'json', 'msgpack' or 'protobuf'")
	}

	d := c.Accounts.DefaultMaximumDebt
	if d.Dollars < 0 || d.Cents < 0 {
		errors = append(errors, "accounts.default_maximum_debt must not be negative")
	}

	if c.Kafka.Enabled {
		if len(c.KafkaBrokers()) == 0 {
			errors = append(errors, "kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			errors = append(errors, "kafka.topic is required when kafka is enabled")
		}
		if c.Kafka.Consume && c.Kafka.GroupID == "" {
			errors = append(errors, "kafka.group_id is required to consume")
		}
	}

	return errors
}

// GenerateYAML generates a commented YAML configuration
func GenerateYAML(cfg *Config) string {
	var b strings.Builder

	b.WriteString("# ledger configuration\n")
	b.WriteString("# Values of the form ${VAR} are read from the environment.\n\n")
	fmt.Fprintf(&b, "version: %q\n\n", cfg.Version)

	b.WriteString("server:\n")
	fmt.Fprintf(&b, "  address: %q\n", cfg.Server.Address)
	b.WriteString("  # gin mode: debug, release or test\n")
	fmt.Fprintf(&b, "  mode: %s\n\n", cfg.Server.Mode)

	b.WriteString("database:\n")
	b.WriteString("  # Supported drivers: postgres, memory\n")
	fmt.Fprintf(&b, "  driver: %s\n", cfg.Database.Driver)
	fmt.Fprintf(&b, "  url: %q\n", cfg.Database.URL)
	fmt.Fprintf(&b, "  schema: %s\n\n", cfg.Database.Schema)

	b.WriteString("event_store:\n")
	b.WriteString("  # Event payload encoding: json, msgpack or protobuf\n")
	fmt.Fprintf(&b, "  serializer: %s\n\n", cfg.EventStore.Serializer)

	b.WriteString("logging:\n")
	b.WriteString("  # development or production\n")
	fmt.Fprintf(&b, "  mode: %s\n\n", cfg.Logging.Mode)

	b.WriteString("accounts:\n")
	b.WriteString("  default_maximum_debt:\n")
	fmt.Fprintf(&b, "    dollars: %d\n", cfg.Accounts.DefaultMaximumDebt.Dollars)
	fmt.Fprintf(&b, "    cents: %d\n\n", cfg.Accounts.DefaultMaximumDebt.Cents)

	b.WriteString("kafka:\n")
	fmt.Fprintf(&b, "  enabled: %t\n", cfg.Kafka.Enabled)
	b.WriteString("  brokers:\n")
	for _, broker := range cfg.Kafka.Brokers {
		fmt.Fprintf(&b, "    - %q\n", broker)
	}
	fmt.Fprintf(&b, "  topic: %s\n", cfg.Kafka.Topic)
	fmt.Fprintf(&b, "  group_id: %s\n", cfg.Kafka.GroupID)
	fmt.Fprintf(&b, "  publish: %t\n", cfg.Kafka.Publish)
	b.WriteString("  # Open linked accounts from the topic instead of in-process\n")
	fmt.Fprintf(&b, "  consume: %t\n\n", cfg.Kafka.Consume)

	b.WriteString("telemetry:\n")
	fmt.Fprintf(&b, "  metrics_enabled: %t\n", cfg.Telemetry.MetricsEnabled)
	fmt.Fprintf(&b, "  metrics_namespace: %s\n", cfg.Telemetry.MetricsNamespace)
	fmt.Fprintf(&b, "  tracing_enabled: %t\n", cfg.Telemetry.TracingEnabled)
	fmt.Fprintf(&b, "  service_name: %s\n", cfg.Telemetry.ServiceName)

	return b.String()
}
