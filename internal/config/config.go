// Package config provides YAML-based configuration loading for wapanel.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default remote endpoints.
const (
	DefaultWhatsAppURL = "https://api.infragrowthai.com/webhook/whatsapp"
	DefaultOpenAIURL   = "https://api.infragrowthai.com/webhook/openai"
)

// Config is the top-level wapanel configuration, loaded from wapanel.yaml.
type Config struct {
	LocationID string          `yaml:"location_id"`
	API        APIConfig       `yaml:"api"`
	Database   DatabaseConfig  `yaml:"database"`
	Dashboard  DashboardConfig `yaml:"dashboard"`
	QR         QRConfig        `yaml:"qr"`
	Notify     NotifyConfig    `yaml:"notify"`
	Digest     DigestConfig    `yaml:"digest"`
}

// APIConfig holds the remote service endpoints.
type APIConfig struct {
	WhatsAppURL string        `yaml:"whatsapp_url"`
	OpenAIURL   string        `yaml:"openai_url"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DatabaseConfig selects the local store backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DashboardConfig holds web dashboard settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// QRConfig tunes the QR polling widget.
type QRConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	StatusInterval  time.Duration `yaml:"status_interval"` // 0 disables the status poll
	CloseDelay      time.Duration `yaml:"close_delay"`
}

// NotifyConfig holds chat destinations for toasts and digests.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig is a bot token plus the channel to post to.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are set.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// DigestConfig controls the scheduled status digest.
type DigestConfig struct {
	Schedule string `yaml:"schedule"` // 5-field cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment
// overrides are applied after the file and before defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays WAPANEL_* environment variables.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.LocationID, "WAPANEL_LOCATION_ID")
	set(&c.API.WhatsAppURL, "WAPANEL_WHATSAPP_URL")
	set(&c.API.OpenAIURL, "WAPANEL_OPENAI_URL")
	set(&c.API.Token, "WAPANEL_API_TOKEN")
	set(&c.Notify.Slack.BotToken, "WAPANEL_SLACK_TOKEN")
	set(&c.Notify.Discord.BotToken, "WAPANEL_DISCORD_TOKEN")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.API.WhatsAppURL == "" {
		c.API.WhatsAppURL = DefaultWhatsAppURL
	}
	if c.API.OpenAIURL == "" {
		c.API.OpenAIURL = DefaultOpenAIURL
	}
	c.API.WhatsAppURL = strings.TrimRight(c.API.WhatsAppURL, "/")
	c.API.OpenAIURL = strings.TrimRight(c.API.OpenAIURL, "/")
	if c.API.Timeout == 0 {
		c.API.Timeout = 20 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "wapanel.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "wapanel"
		}
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.QR.RefreshInterval == 0 {
		c.QR.RefreshInterval = 30 * time.Second
	}
	if c.QR.CloseDelay == 0 {
		c.QR.CloseDelay = 1500 * time.Millisecond
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	for _, f := range []struct{ name, raw string }{
		{"api.whatsapp_url", c.API.WhatsAppURL},
		{"api.openai_url", c.API.OpenAIURL},
	} {
		u, err := url.Parse(f.raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("%s must be an http(s) URL", f.name))
		}
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, "api.timeout must not be negative")
	}
	if c.QR.RefreshInterval < time.Second {
		errs = append(errs, "qr.refresh_interval must be at least 1s")
	}
	if c.QR.StatusInterval < 0 {
		errs = append(errs, "qr.status_interval must not be negative")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, "dashboard.port is out of range")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
