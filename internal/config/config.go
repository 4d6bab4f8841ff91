package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/paths"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Sonarr   ServiceConfig  `mapstructure:"sonarr" toml:"sonarr"`
	Radarr   ServiceConfig  `mapstructure:"radarr" toml:"radarr"`
	Prefetch PrefetchConfig `mapstructure:"prefetch" toml:"prefetch"`
	Notify   NotifyConfig   `mapstructure:"notify" toml:"notify"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" toml:"logging"`
	Activity ActivityConfig `mapstructure:"activity" toml:"activity"`

	// InvocationTimeoutSeconds bounds one event invocation end to end.
	InvocationTimeoutSeconds int `mapstructure:"invocation_timeout_seconds" toml:"invocation_timeout_seconds" validate:"min=1,max=3600"`
}

// ServiceConfig contains Sonarr or Radarr connection settings
type ServiceConfig struct {
	URL            string `mapstructure:"url" toml:"url" validate:"omitempty,url"`
	APIKey         string `mapstructure:"api_key" toml:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" validate:"min=0,max=600"`
}

// Configured reports whether both URL and API key are present.
func (s ServiceConfig) Configured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// Timeout returns the per-request timeout, defaulting to 30s.
func (s ServiceConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// PrefetchConfig tunes the episode prefetch planner
type PrefetchConfig struct {
	BufferSize                int     `mapstructure:"buffer_size" toml:"buffer_size" validate:"min=1,max=100"`
	SetWanted                 bool    `mapstructure:"set_wanted" toml:"set_wanted"`
	AutoSearch                bool    `mapstructure:"auto_search" toml:"auto_search"`
	MonitorFutureOnExhaustion bool    `mapstructure:"monitor_future_on_exhaustion" toml:"monitor_future_on_exhaustion"`
	MonitorNewSeasons         bool    `mapstructure:"monitor_new_seasons" toml:"monitor_new_seasons"`
	Workers                   int     `mapstructure:"workers" toml:"workers" validate:"min=1,max=16"`
	RatePerSecond             float64 `mapstructure:"rate_per_second" toml:"rate_per_second" validate:"gt=0"`
	Retries                   int     `mapstructure:"retries" toml:"retries" validate:"min=0,max=10"`
}

type NotifyConfig struct {
	Desktop        DesktopConfig `mapstructure:"desktop" toml:"desktop"`
	Discord        DiscordConfig `mapstructure:"discord" toml:"discord"`
	Email          EmailConfig   `mapstructure:"email" toml:"email"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds" toml:"timeout_seconds" validate:"min=0,max=300"`
}

type DesktopConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Command string `mapstructure:"command" toml:"command"`
}

type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url" toml:"webhook_url" validate:"omitempty,url"`
}

type EmailConfig struct {
	Server   string `mapstructure:"server" toml:"server" validate:"omitempty,hostname|ip"`
	Port     int    `mapstructure:"port" toml:"port" validate:"min=0,max=65535"`
	User     string `mapstructure:"user" toml:"user"`
	Password string `mapstructure:"password" toml:"password"`
	From     string `mapstructure:"from" toml:"from"`
	To       string `mapstructure:"to" toml:"to" validate:"omitempty,email"`
}

// Configured reports whether every field needed for SMTP submission is set.
func (e EmailConfig) Configured() bool {
	return e.Server != "" && e.User != "" && e.Password != "" && e.To != ""
}

// Partial reports an email section that was started but not finished.
func (e EmailConfig) Partial() bool {
	return !e.Configured() && (e.Server != "" || e.User != "" || e.Password != "" || e.To != "")
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr" toml:"addr"`
	WebhookSecret      string `mapstructure:"webhook_secret" toml:"webhook_secret"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" toml:"rate_limit_per_minute" validate:"min=0"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" toml:"format" validate:"omitempty,oneof=auto console json"`
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"min=0"`
}

type ActivityConfig struct {
	Enabled       bool   `mapstructure:"enabled" toml:"enabled"`
	Dir           string `mapstructure:"dir" toml:"dir"`
	RetentionDays int    `mapstructure:"retention_days" toml:"retention_days" validate:"min=0"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Sonarr: ServiceConfig{TimeoutSeconds: 30},
		Radarr: ServiceConfig{TimeoutSeconds: 30},
		Prefetch: PrefetchConfig{
			BufferSize:                6,
			SetWanted:                 true,
			AutoSearch:                true,
			MonitorFutureOnExhaustion: true,
			MonitorNewSeasons:         false,
			Workers:                   3,
			RatePerSecond:             5,
			Retries:                   2,
		},
		Notify: NotifyConfig{
			Desktop:        DesktopConfig{Enabled: false, Command: "notify-send"},
			Email:          EmailConfig{Port: 587},
			TimeoutSeconds: 10,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			RateLimitPerMinute: 120,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "auto",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Activity: ActivityConfig{
			Enabled:       false,
			RetentionDays: 30,
		},
		InvocationTimeoutSeconds: 120,
	}
}

// envBindings maps config keys to the environment variables that may set
// them, in precedence order. The short names are the ones the original
// notification and download scripts read.
var envBindings = map[string][]string{
	"sonarr.url":                            {"JELLYHOOK_SONARR_URL", "SONARR_URL"},
	"sonarr.api_key":                        {"JELLYHOOK_SONARR_API_KEY", "SONARR_APIKEY", "SONARR_API_KEY"},
	"radarr.url":                            {"JELLYHOOK_RADARR_URL", "RADARR_URL"},
	"radarr.api_key":                        {"JELLYHOOK_RADARR_API_KEY", "RADARR_APIKEY", "RADARR_API_KEY"},
	"prefetch.buffer_size":                  {"JELLYHOOK_EPISODE_BUFFER", "EPISODE_BUFFER"},
	"prefetch.set_wanted":                   {"JELLYHOOK_SET_WANTED", "SET_WANTED"},
	"prefetch.auto_search":                  {"JELLYHOOK_AUTO_SEARCH", "AUTO_SEARCH"},
	"prefetch.monitor_future_on_exhaustion": {"JELLYHOOK_MONITOR_FUTURE_EPISODES", "MONITOR_FUTURE_EPISODES"},
	"notify.desktop.enabled":                {"JELLYHOOK_DESKTOP_NOTIFY", "DESKTOP_NOTIFY"},
	"notify.discord.webhook_url":            {"JELLYHOOK_DISCORD_WEBHOOK_URL", "DISCORD_WEBHOOK_URL"},
	"notify.email.server":                   {"JELLYHOOK_SMTP_SERVER", "SMTP_SERVER"},
	"notify.email.port":                     {"JELLYHOOK_SMTP_PORT", "SMTP_PORT"},
	"notify.email.user":                     {"JELLYHOOK_SMTP_USER", "SMTP_USER"},
	"notify.email.password":                 {"JELLYHOOK_SMTP_PASS", "SMTP_PASS"},
	"notify.email.from":                     {"JELLYHOOK_EMAIL_FROM", "EMAIL_FROM"},
	"notify.email.to":                       {"JELLYHOOK_EMAIL_TO", "EMAIL_TO"},
	"server.webhook_secret":                 {"JELLYHOOK_WEBHOOK_SECRET"},
	"logging.level":                         {"JELLYHOOK_LOG_LEVEL"},
	"logging.file":                          {"JELLYHOOK_LOG_FILE"},
	"activity.enabled":                      {"JELLYHOOK_ACTIVITY"},
}

// EnvNames returns every environment variable name the config reads.
// The hook strips them from the environment before decoding an event.
func EnvNames() []string {
	var names []string
	for _, envs := range envBindings {
		names = append(names, envs...)
	}
	return names
}

// Load loads configuration from path (or the default config path when
// empty), overlays environment variables and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		p, err := paths.ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("unable to get config path: %w", err)
		}
		path = p
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// InvocationTimeout returns the end-to-end budget of one invocation.
func (c *Config) InvocationTimeout() time.Duration {
	if c.InvocationTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.InvocationTimeoutSeconds) * time.Second
}

// Save writes the configuration as TOML. The file holds API keys, so it
// is created owner-readable only.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	body, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	content := "# Jellyhook configuration\n# Generated by: jellyhook config init\n\n" + string(body)
	return os.WriteFile(path, []byte(content), 0600)
}

func ConfigPath() (string, error) {
	return paths.ConfigPath()
}

func ConfigExists(path string) bool {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return false
		}
		path = p
	}
	_, err := os.Stat(path)
	return err == nil
}
