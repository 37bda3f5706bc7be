package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Dataset DatasetConfig `json:"dataset"`
	Chat    ChatConfig    `json:"chat"`
	LLM     LLMConfig     `json:"llm"`
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`
}

// DatasetConfig configures the read-only transactions database
type DatasetConfig struct {
	Path            string `json:"path"              env:"DATASET_PATH"             envDefault:"~/.local/share/upi-insight/transactions.db"`
	MaxConnections  int    `json:"max_connections"   env:"DATASET_MAX_CONNECTIONS"  envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"    env:"DATASET_MAX_IDLE_CONNS"   envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime" env:"DATASET_CONN_MAX_LIFETIME" envDefault:"30m"`
	QueryTimeout    string `json:"query_timeout"     env:"DATASET_QUERY_TIMEOUT"    envDefault:"30s"`
	RowCap          int    `json:"row_cap"           env:"DATASET_ROW_CAP"          envDefault:"500"`
}

// ChatConfig configures chat history storage and the context window
type ChatConfig struct {
	Path           string `json:"path"            env:"CHAT_DB_PATH"      envDefault:"~/.local/share/upi-insight/chat_history.db"`
	ContextWindow  int    `json:"context_window"  env:"CHAT_CONTEXT_WINDOW" envDefault:"3"`
	TitleMaxLength int    `json:"title_max_length" env:"CHAT_TITLE_MAX_LEN" envDefault:"60"`
	SessionLimit   int    `json:"session_limit"   env:"CHAT_SESSION_LIMIT" envDefault:"50"`
}

// LLMConfig configures the external reasoning service
type LLMConfig struct {
	Provider    string `json:"provider"     env:"LLM_PROVIDER"     envDefault:"openai"` // openai (incl. Groq-compatible), anthropic, ollama
	Model       string `json:"model"        env:"LLM_MODEL"        envDefault:"llama-3.3-70b-versatile"`
	APIKey      string `json:"api_key"      env:"LLM_API_KEY"`
	BaseURL     string `json:"base_url"     env:"LLM_BASE_URL"`
	CallTimeout string `json:"call_timeout" env:"LLM_CALL_TIMEOUT" envDefault:"45s"`
	Followups   int    `json:"followups"    env:"LLM_FOLLOWUPS"    envDefault:"3"`
	ExamplePick int    `json:"example_pick" env:"LLM_EXAMPLE_PICK" envDefault:"8"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string `json:"addr"             env:"SERVER_ADDR"             envDefault:":8000"`
	ShutdownTimeout string `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.local/share/upi-insight/logs/app.log"`
}

// LoadConfig loads configuration from .env, config file, and environment variables
func LoadConfig() (*Config, error) {
	// Mirror of the .env convention from development setups; missing file is fine.
	_ = godotenv.Load()

	config := &Config{}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Environment variable overrides; also fills defaults for unset fields.
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "UPI_INSIGHT_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.ExpandAllPaths()

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	for field, value := range map[string]string{
		"dataset query timeout":   config.Dataset.QueryTimeout,
		"dataset conn lifetime":   config.Dataset.ConnMaxLifetime,
		"llm call timeout":        config.LLM.CallTimeout,
		"server shutdown timeout": config.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", field, value)
		}
	}

	if config.Dataset.MaxConnections <= 0 {
		return fmt.Errorf(
			"dataset max connections must be positive: %d",
			config.Dataset.MaxConnections,
		)
	}

	if config.Dataset.RowCap <= 0 {
		return fmt.Errorf("dataset row cap must be positive: %d", config.Dataset.RowCap)
	}

	if config.Chat.ContextWindow <= 0 {
		return fmt.Errorf("chat context window must be positive: %d", config.Chat.ContextWindow)
	}

	if config.LLM.Followups <= 0 {
		return fmt.Errorf("llm followups must be positive: %d", config.LLM.Followups)
	}

	return nil
}

// QueryTimeoutDuration returns the parsed dataset query timeout.
// validateConfig has already guaranteed the string parses.
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Dataset.QueryTimeout)
	return d
}

// LLMTimeoutDuration returns the parsed per-call reasoning timeout.
func (c *Config) LLMTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.LLM.CallTimeout)
	return d
}

// ShutdownTimeoutDuration returns the parsed server shutdown timeout.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("UPI_INSIGHT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "upi-insight", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Dataset.Path = expandPath(c.Dataset.Path)
	c.Chat.Path = expandPath(c.Chat.Path)
	c.Logging.File = expandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Dataset.Path),
		filepath.Dir(c.Chat.Path),
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
