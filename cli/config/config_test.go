package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "ledger", cfg.Database.Schema)
	assert.Equal(t, SerializerJSON, cfg.EventStore.Serializer)
	assert.Equal(t, "ledger.events", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Zero(t, cfg.Accounts.DefaultMaximumDebt)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Config)
		wantErrors int
	}{
		{
			name:       "valid default config with postgres URL",
			modify:     func(c *Config) { c.Database.URL = "postgres://localhost/db" },
			wantErrors: 0,
		},
		{
			name:       "valid memory driver",
			modify:     func(c *Config) { c.Database.Driver = DriverMemory; c.Database.URL = "" },
			wantErrors: 0,
		},
		{
			name:       "missing driver",
			modify:     func(c *Config) { c.Database.Driver = "" },
			wantErrors: 1,
		},
		{
			name:       "invalid driver",
			modify:     func(c *Config) { c.Database.Driver = "mysql" },
			wantErrors: 1,
		},
		{
			name:       "postgres without URL",
			modify:     func(c *Config) { c.Database.URL = "" },
			wantErrors: 1,
		},
		{
			name: "unknown serializer",
			modify: func(c *Config) {
				c.Database.Driver = DriverMemory
				c.EventStore.Serializer = "xml"
			},
			wantErrors: 1,
		},
		{
			name: "negative default maximum debt",
			modify: func(c *Config) {
				c.Database.Driver = DriverMemory
				c.Accounts.DefaultMaximumDebt = MoneyConfig{Dollars: -1}
			},
			wantErrors: 1,
		},
		{
			name: "kafka consumer without brokers or group",
			modify: func(c *Config) {
				c.Database.Driver = DriverMemory
				c.Kafka = KafkaConfig{Enabled: true, Topic: "t", Consume: true}
			},
			wantErrors: 2,
		},
		{
			name:       "unknown server mode",
			modify:     func(c *Config) { c.Database.Driver = DriverMemory; c.Server.Mode = "verbose" },
			wantErrors: 1,
		},
		{
			name:       "missing server address",
			modify:     func(c *Config) { c.Database.Driver = DriverMemory; c.Server.Address = "" },
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			cfg := DefaultConfig()
			tt.modify(cfg)
			errors := cfg.Validate()
			assert.Equal(t, tt.wantErrors, len(errors), "errors: %v", errors)
		})
	}
}

func TestConfig_DatabaseURL(t *testing.T) {
	t.Setenv("LEDGER_TEST_DB", "postgres://ledger@localhost/ledger")

	cfg := DefaultConfig()
	cfg.Database.URL = "${LEDGER_TEST_DB}?sslmode=disable"

	assert.Equal(t, "postgres://ledger@localhost/ledger?sslmode=disable", cfg.DatabaseURL())
	assert.Empty(t, cfg.Validate())
}

func TestConfig_KafkaBrokers(t *testing.T) {
	t.Setenv("LEDGER_TEST_BROKERS", "k1:9092, k2:9092")

	cfg := DefaultConfig()
	cfg.Kafka.Brokers = []string{"${LEDGER_TEST_BROKERS}", "k3:9092", "${LEDGER_TEST_UNSET}"}

	assert.Equal(t, []string{"k1:9092", "k2:9092", "k3:9092"}, cfg.KafkaBrokers())
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database.URL = "postgres://localhost/test"
	cfg.EventStore.Serializer = SerializerMsgpack
	cfg.Accounts.DefaultMaximumDebt = MoneyConfig{Dollars: 100, Cents: 50}
	cfg.Kafka.Brokers = []string{"a:9092", "b:9092"}

	require.NoError(t, cfg.Save(tmpDir))

	_, err := os.Stat(filepath.Join(tmpDir, ConfigFileName))
	require.NoError(t, err)

	loaded, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, cfg, loaded)
}

func TestLoadFile_KeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: memory\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, SerializerJSON, cfg.EventStore.Serializer)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	assert.False(t, Exists(tmpDir))

	require.NoError(t, DefaultConfig().Save(tmpDir))

	assert.True(t, Exists(tmpDir))
}

func TestFindConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Server.Address = ":9999"
	require.NoError(t, cfg.Save(tmpDir))

	nested := filepath.Join(tmpDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	foundDir, foundCfg, err := FindConfig(nested)
	require.NoError(t, err)

	assert.Equal(t, tmpDir, foundDir)
	assert.Equal(t, ":9999", foundCfg.Server.Address)
}

func TestGenerateYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = DriverMemory
	cfg.Accounts.DefaultMaximumDebt = MoneyConfig{Dollars: 250}

	out := GenerateYAML(cfg)

	assert.Contains(t, out, "# ledger configuration")
	assert.Contains(t, out, "driver: memory")
	assert.Contains(t, out, "dollars: 250")
	assert.Contains(t, out, `"${DATABASE_URL}"`)

	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
