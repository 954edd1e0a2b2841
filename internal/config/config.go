package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/mcp"
	"github.com/samsaffron/minmax-code/internal/session"
)

// APIKeyEnv is consulted when api_key is not set in the config file.
const APIKeyEnv = "MINIMAX_API_KEY"

type Config struct {
	APIKey      string                      `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL     string                      `mapstructure:"base_url" yaml:"base_url"`
	Model       string                      `mapstructure:"model" yaml:"model"`
	Mode        string                      `mapstructure:"mode" yaml:"mode"`
	Temperature float64                     `mapstructure:"temperature" yaml:"temperature"`
	Quota       QuotaConfig                 `mapstructure:"quota" yaml:"quota,omitempty"`
	Context     ContextConfig               `mapstructure:"context" yaml:"context"`
	Sessions    session.Config              `mapstructure:"sessions" yaml:"sessions"`
	MCPServers  map[string]mcp.ServerConfig `mapstructure:"mcp_servers" yaml:"mcp_servers,omitempty"`

	// path is the file the config was read from, or would be written to.
	path string
}

// QuotaConfig overrides the quota endpoints tried by the quota command.
type QuotaConfig struct {
	Endpoints []string `mapstructure:"endpoints" yaml:"endpoints,omitempty"`
}

// ContextConfig tunes history compression.
type ContextConfig struct {
	CompressThreshold int `mapstructure:"compress_threshold" yaml:"compress_threshold"`
	KeepRecent        int `mapstructure:"keep_recent" yaml:"keep_recent"`
}

// Path returns the config file location.
func (c *Config) Path() string {
	return c.path
}

// setDefaults registers every key's default on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", llm.DefaultBaseURL)
	v.SetDefault("model", llm.DefaultModel)
	v.SetDefault("mode", "builder")
	v.SetDefault("temperature", 1.0)
	v.SetDefault("context.compress_threshold", 100000)
	v.SetDefault("context.keep_recent", 10)
	v.SetDefault("sessions.enabled", true)
	v.SetDefault("sessions.max_age_days", 0)
	v.SetDefault("sessions.max_count", 0)
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
	}
	v.SetConfigFile(path)

	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// resolve expands ${VAR} references and applies environment fallbacks.
func (c *Config) resolve() {
	c.APIKey = expandEnv(c.APIKey)
	if c.APIKey == "" {
		c.APIKey = os.Getenv(APIKeyEnv)
	}
	c.BaseURL = strings.TrimRight(expandEnv(c.BaseURL), "/")
	for name, srv := range c.MCPServers {
		srv.Command = expandEnv(srv.Command)
		c.MCPServers[name] = srv
	}
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	switch c.Mode {
	case "builder", "plan":
	default:
		return fmt.Errorf("mode must be builder or plan, got %q", c.Mode)
	}
	if c.Temperature <= 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in (0, 2], got %v", c.Temperature)
	}
	if c.Context.CompressThreshold < 0 || c.Context.KeepRecent < 0 {
		return fmt.Errorf("context settings must not be negative")
	}
	for _, name := range mcp.SortedNames(c.MCPServers) {
		if err := c.MCPServers[name].Validate(); err != nil {
			return fmt.Errorf("mcp server %q: %w", name, err)
		}
	}
	if !llm.IsKnownModel(c.Model) {
		slog.Warn("unknown model, sending as-is", "model", c.Model)
	}
	return nil
}

// ClientConfig returns the settings the API client needs.
func (c *Config) ClientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Temperature:    c.Temperature,
		QuotaEndpoints: c.Quota.Endpoints,
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for minmax-code.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "minmax-code"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "minmax-code"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
