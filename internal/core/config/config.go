package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBackendURL is the extraction backend both /api/info and /api/download go to
	DefaultBackendURL = "http://127.0.0.1:8000"
	// DefaultPort is the gateway listen port
	DefaultPort = 3000
	// DefaultUserAgent is the desktop browser user agent sent to CDNs
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config is the on-disk configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Relay   RelayConfig   `yaml:"relay"`
	Client  ClientConfig  `yaml:"client"`
}

// BackendConfig points at the external extraction service
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ServerConfig configures the HTTP gateway
type ServerConfig struct {
	Port      int     `yaml:"port"`
	APIKey    string  `yaml:"api_key,omitempty"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
	Burst     int     `yaml:"burst"`
}

// RelayConfig controls the headers used for second-hop CDN fetches
type RelayConfig struct {
	UserAgent string            `yaml:"user_agent"`
	Referers  map[string]string `yaml:"referers,omitempty"` // platform name -> referer
}

// ClientConfig is used by `vdl get`
type ClientConfig struct {
	GatewayURL string `yaml:"gateway_url"`
	Token      string `yaml:"token,omitempty"`
	OutputDir  string `yaml:"output_dir"`
}

// DefaultConfig returns a config with every field populated
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{BaseURL: DefaultBackendURL},
		Server: ServerConfig{
			Port:      DefaultPort,
			RateLimit: 10,
			Burst:     20,
		},
		Relay: RelayConfig{UserAgent: DefaultUserAgent},
		Client: ClientConfig{
			GatewayURL: fmt.Sprintf("http://127.0.0.1:%d", DefaultPort),
			OutputDir:  ".",
		},
	}
}

// Dir returns the configuration directory
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vdl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vdl"
	}
	return filepath.Join(home, ".config", "vdl")
}

// Path returns the config file location
func Path() string {
	return filepath.Join(Dir(), "config.yml")
}

// Exists reports whether a config file is present
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// Load reads the config file on top of the defaults and applies env overrides
func Load() (*Config, error) {
	cfg, err := readFile()
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadOrDefault never fails; a missing or broken file yields the defaults
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
		applyEnv(cfg)
	}
	return cfg
}

// LoadFile returns what is persisted on disk over the defaults, without env
// overrides. A missing file is not an error. Use it for anything that is saved back.
func LoadFile() (*Config, error) {
	cfg, err := readFile()
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func readFile() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Path(), err)
	}
	return cfg, nil
}

// Save writes cfg to Path()
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(Path(), data, 0600)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VDL_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("VDL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VDL_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VDL_GATEWAY_URL"); v != "" {
		cfg.Client.GatewayURL = v
	}
}

// Get returns the string form of a dotted key
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "backend.base_url":
		return c.Backend.BaseURL, nil
	case "server.port":
		return strconv.Itoa(c.Server.Port), nil
	case "server.api_key":
		return c.Server.APIKey, nil
	case "server.rate_limit":
		return strconv.FormatFloat(c.Server.RateLimit, 'f', -1, 64), nil
	case "server.burst":
		return strconv.Itoa(c.Server.Burst), nil
	case "relay.user_agent":
		return c.Relay.UserAgent, nil
	case "client.gateway_url":
		return c.Client.GatewayURL, nil
	case "client.token":
		return c.Client.Token, nil
	case "client.output_dir":
		return c.Client.OutputDir, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set updates a dotted key from its string form
func (c *Config) Set(key, value string) error {
	switch key {
	case "backend.base_url":
		c.Backend.BaseURL = value
	case "server.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for server.port: %s", value)
		}
		c.Server.Port = port
	case "server.api_key":
		c.Server.APIKey = value
	case "server.rate_limit":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for server.rate_limit: %s", value)
		}
		c.Server.RateLimit = rps
	case "server.burst":
		burst, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for server.burst: %s", value)
		}
		c.Server.Burst = burst
	case "relay.user_agent":
		c.Relay.UserAgent = value
	case "client.gateway_url":
		c.Client.GatewayURL = value
	case "client.token":
		c.Client.Token = value
	case "client.output_dir":
		c.Client.OutputDir = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
