package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Path:            "/tmp/transactions.db",
			MaxConnections:  10,
			MaxIdleConns:    5,
			ConnMaxLifetime: "30m",
			QueryTimeout:    "30s",
			RowCap:          500,
		},
		Chat: ChatConfig{
			Path:           "/tmp/chat_history.db",
			ContextWindow:  3,
			TitleMaxLength: 60,
			SessionLimit:   50,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "llama-3.3-70b-versatile",
			CallTimeout: "45s",
			Followups:   3,
			ExamplePick: 8,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name:    "bad query timeout",
			mutate:  func(c *Config) { c.Dataset.QueryTimeout = "fast" },
			wantErr: "invalid dataset query timeout",
		},
		{
			name:    "zero row cap",
			mutate:  func(c *Config) { c.Dataset.RowCap = 0 },
			wantErr: "row cap must be positive",
		},
		{
			name:    "zero context window",
			mutate:  func(c *Config) { c.Chat.ContextWindow = 0 },
			wantErr: "context window must be positive",
		},
		{
			name:    "zero followups",
			mutate:  func(c *Config) { c.LLM.Followups = 0 },
			wantErr: "followups must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultTestConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMergeConfigs(t *testing.T) {
	target := defaultTestConfig()
	source := &Config{}
	source.Dataset.RowCap = 100
	source.LLM.Model = "gemini-2.0-flash"

	mergeConfigs(target, source)

	assert.Equal(t, 100, target.Dataset.RowCap)
	assert.Equal(t, "gemini-2.0-flash", target.LLM.Model)
	// Zero values in the source must not clobber existing settings.
	assert.Equal(t, "30s", target.Dataset.QueryTimeout)
	assert.Equal(t, ":8000", target.Server.Addr)
}

func TestDurationAccessors(t *testing.T) {
	cfg := defaultTestConfig()

	assert.Equal(t, "30s", cfg.Dataset.QueryTimeout)
	assert.Equal(t, float64(30), cfg.QueryTimeoutDuration().Seconds())
	assert.Equal(t, float64(45), cfg.LLMTimeoutDuration().Seconds())
	assert.Equal(t, float64(10), cfg.ShutdownTimeoutDuration().Seconds())
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
	assert.NotContains(t, expandPath("~/data.db"), "~")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("UPI_INSIGHT_DATASET_ROW_CAP", "250")
	t.Setenv("UPI_INSIGHT_LLM_MODEL", "test-model")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Dataset.RowCap)
	assert.Equal(t, "test-model", cfg.LLM.Model)
	// Defaults fill everything that wasn't overridden.
	assert.Equal(t, 3, cfg.Chat.ContextWindow)
}
