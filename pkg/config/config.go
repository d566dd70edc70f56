// Package config loads the service configuration from YAML with
// environment fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// maxConfigSize caps config files at 1MB.
const maxConfigSize = 1 << 20

// DefaultBookingURL is the NHS Pharmacy First information page handed
// out during booking guidance.
const DefaultBookingURL = "https://www.nhs.uk/nhs-services/pharmacies/pharmacy-first/"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Triage    TriageConfig    `yaml:"triage"`
	Transport TransportConfig `yaml:"transport"`
}

// ServerConfig holds the webhook and observability listeners.
type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`

	// RateLimit is the sustained webhook requests per second; RateBurst
	// is the allowed burst on top of it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// SessionTTL is a Go duration string ("30m", "2h").
	SessionTTL string `yaml:"session_ttl"`
}

// SessionTTLDuration parses the configured session TTL.
func (s StoreConfig) SessionTTLDuration() (time.Duration, error) {
	if s.SessionTTL == "" {
		return 30 * time.Minute, nil
	}
	d, err := time.ParseDuration(s.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session_ttl %q: %w", s.SessionTTL, err)
	}
	return d, nil
}

// OpenAIConfig configures the language service. With no API key the
// service falls back to the offline heuristic detector.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// TriageConfig holds the triage-flow settings.
type TriageConfig struct {
	BookingURL string `yaml:"booking_url"`
}

// TransportConfig configures outbound message delivery.
type TransportConfig struct {
	// Provider is "log" or "rest".
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads configuration from a YAML file, applies defaults and
// environment fallbacks, and validates the result.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 10
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 20
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = "localhost:6379"
	}
	if c.Triage.BookingURL == "" {
		c.Triage.BookingURL = DefaultBookingURL
	}
	if c.Transport.Provider == "" {
		c.Transport.Provider = "log"
	}
}

func (c *Config) applyEnv() {
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && c.Store.Backend == "redis" {
		c.Store.RedisAddr = v
	}
	if c.Store.RedisPassword == "" {
		c.Store.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}
	if c.Transport.AccountSID == "" {
		c.Transport.AccountSID = os.Getenv("TRANSPORT_ACCOUNT_SID")
	}
	if c.Transport.AuthToken == "" {
		c.Transport.AuthToken = os.Getenv("TRANSPORT_AUTH_TOKEN")
	}
}

// Validate checks the configuration for values the service cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MetricsPort < 1 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port out of range: %d", c.Server.MetricsPort)
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("server.port and server.metrics_port must differ")
	}

	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if _, err := c.Store.SessionTTLDuration(); err != nil {
		return err
	}

	switch c.Transport.Provider {
	case "log", "rest":
	default:
		return fmt.Errorf("unknown transport provider %q", c.Transport.Provider)
	}
	if c.Transport.Provider == "rest" && c.Transport.BaseURL == "" {
		return fmt.Errorf("transport.base_url is required for the rest provider")
	}

	return nil
}
