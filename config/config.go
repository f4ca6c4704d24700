package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultPort               = "8080"
	defaultContentDir         = "content"
	defaultWatchDebounce      = 500 * time.Millisecond
	defaultRateLimitPerSecond = 20.0
	defaultRateLimitBurst     = 40
	defaultLogLevel           = "info"
)

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

// Set overrides a config key for the lifetime of this Config. Used by the CLI
// flags and tests.
func (c *Config) Set(key string, value any) {
	c.config.Set(key, value)
}

func (c *Config) GetPort() string {
	port := c.getString("PORT", "server.port")
	if len(port) == 0 {
		port = defaultPort
	}

	return port
}

func (c *Config) GetLogLevel() string {
	level := c.getString("LOG_LEVEL", "server.log_level")
	if len(level) == 0 {
		level = defaultLogLevel
	}

	return level
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path")
}

// GetIndexPath returns the deep index location relative to the storage path.
// An empty value keeps the deep index in memory.
func (c *Config) GetIndexPath() string {
	return c.getString("INDEX_PATH", "database.index_path")
}

func (c *Config) GetStoragePath() string {
	return c.getString("STORAGE_PATH", "database.storage_path")
}

func (c *Config) GetContentDir() string {
	contentDir := c.getString("CONTENT_DIR", "content.dir")
	if len(contentDir) == 0 {
		contentDir = defaultContentDir
	}

	return contentDir
}

func (c *Config) GetWatchContent() bool {
	if c.config.IsSet("CONTENT_WATCH") {
		return c.config.GetBool("CONTENT_WATCH")
	}

	return c.config.GetBool("content.watch")
}

func (c *Config) GetWatchDebounce() time.Duration {
	debounce := c.config.GetDuration("CONTENT_WATCH_DEBOUNCE")
	if debounce == 0 {
		debounce = c.config.GetDuration("content.watch_debounce")
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	return debounce
}

func (c *Config) GetRateLimitPerSecond() float64 {
	rps := c.config.GetFloat64("RATE_LIMIT_RPS")
	if rps == 0 {
		rps = c.config.GetFloat64("rate_limit.requests_per_second")
	}
	if rps <= 0 {
		rps = defaultRateLimitPerSecond
	}

	return rps
}

func (c *Config) GetRateLimitBurst() int {
	burst := c.config.GetInt("RATE_LIMIT_BURST")
	if burst == 0 {
		burst = c.config.GetInt("rate_limit.burst")
	}
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}

	return burst
}

// getString prefers the environment variable over the key from the config file.
func (c *Config) getString(envKey string, fileKey string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}

	return value
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
