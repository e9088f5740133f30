package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
)

// envPrefix is prepended to every environment override.
const envPrefix = "CHARKOV_"

// ServerConfig holds settings for the database, logging and the HTTP API.
type ServerConfig struct {
	ApiAddr           string `json:"api_addr" toml:"api_addr"`
	LogLevel          string `json:"log_level" toml:"log_level"`
	DatabasePath      string `json:"database_path" toml:"database_path"`
	ModelCacheSize    int    `json:"model_cache_size" toml:"model_cache_size"`
	MaxGenerateLength int    `json:"max_generate_length" toml:"max_generate_length"`
	MaxWindowLength   int    `json:"max_window_length" toml:"max_window_length"`
}

// GenerateConfig holds the defaults for generation.
type GenerateConfig struct {
	WindowLength int    `json:"window_length" toml:"window_length"`
	Length       int    `json:"length" toml:"length"`
	Seed         *int64 `json:"seed,omitempty" toml:"seed,omitempty"`
	TotalLength  bool   `json:"total_length" toml:"total_length"`
	WrapWidth    int    `json:"wrap_width" toml:"wrap_width"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server   *ServerConfig   `json:"server_config" toml:"server_config"`
	Generate *GenerateConfig `json:"generate_config" toml:"generate_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:           ":7280",
		LogLevel:          "info",
		DatabasePath:      filepath.Join(xdgDataHome(), "charkov", "charkov.db"),
		ModelCacheSize:    16,
		MaxGenerateLength: 100_000,
		MaxWindowLength:   256,
	}
}

// DefaultGenerateConfig creates a generation configuration with default values.
func DefaultGenerateConfig() *GenerateConfig {
	return &GenerateConfig{
		WindowLength: 7,
		Length:       500,
		TotalLength:  false,
		WrapWidth:    0,
	}
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:   DefaultServerConfig(),
		Generate: DefaultGenerateConfig(),
	}
}

// DefaultConfigPath returns the default JSON config path.
func DefaultConfigPath() string {
	return filepath.Join(xdgConfigHome(), "charkov", "config.json")
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

func xdgDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// encodeConfig renders config in the format implied by the path extension.
func encodeConfig(path string, config *Config) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.MarshalIndent(config, "", "  ")
}

// LoadConfig reads the configuration from a JSON file, or a TOML file when
// the path ends in .toml. If the file doesn't exist, it creates one with
// default values. Sections missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = encodeConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
				err = atomic.WriteFile(path, bytes.NewReader(data))
			}
			if err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(path) {
		// toml replaces pointer fields wholesale, so decode over value copies
		// to keep defaults for keys the file leaves out.
		shadow := struct {
			Server   ServerConfig   `toml:"server_config"`
			Generate GenerateConfig `toml:"generate_config"`
		}{*config.Server, *config.Generate}
		if _, err = toml.Decode(string(file), &shadow); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		config.Server, config.Generate = &shadow.Server, &shadow.Generate
	} else if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Generate == nil {
		config.Generate = DefaultGenerateConfig()
	}
	return config, nil
}

// loadDotEnv loads variables from a .env file in the working directory, if
// there is one. Variables already set in the environment win.
func loadDotEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", "error", err)
	}
}

// applyEnv overrides config values with CHARKOV_* environment variables.
func applyEnv(config *Config, logger *slog.Logger) {
	config.Server.ApiAddr = getEnv("API_ADDR", config.Server.ApiAddr)
	config.Server.LogLevel = getEnv("LOG_LEVEL", config.Server.LogLevel)
	config.Server.DatabasePath = getEnv("DATABASE_PATH", config.Server.DatabasePath)
	config.Server.ModelCacheSize = getEnvInt("MODEL_CACHE_SIZE", config.Server.ModelCacheSize, logger)
	config.Server.MaxGenerateLength = getEnvInt("MAX_GENERATE_LENGTH", config.Server.MaxGenerateLength, logger)
	config.Server.MaxWindowLength = getEnvInt("MAX_WINDOW_LENGTH", config.Server.MaxWindowLength, logger)

	config.Generate.WindowLength = getEnvInt("WINDOW_LENGTH", config.Generate.WindowLength, logger)
	config.Generate.Length = getEnvInt("LENGTH", config.Generate.Length, logger)
	config.Generate.TotalLength = getEnvBool("TOTAL_LENGTH", config.Generate.TotalLength, logger)
	config.Generate.WrapWidth = getEnvInt("WRAP_WIDTH", config.Generate.WrapWidth, logger)
	if v, ok := os.LookupEnv(envPrefix + "SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logger.Warn("Ignoring invalid environment value", "name", envPrefix+"SEED", "value", v)
		} else {
			config.Generate.Seed = &seed
		}
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int, logger *slog.Logger) int {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("Ignoring invalid environment value", "name", envPrefix+key, "value", v)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool, logger *slog.Logger) bool {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("Ignoring invalid environment value", "name", envPrefix+key, "value", v)
		return fallback
	}
	return b
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
