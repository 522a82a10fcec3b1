// Package config provides configuration for the support service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SUPPORTBOT_HTTP_PORT.
const EnvPrefix = "SUPPORTBOT"

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// FAQ corpus file; empty uses the built-in corpus.
	FAQPath string

	// AI settings
	Mode      string
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	// Conversation limits
	HistoryWindow    int
	MaxMessageLength int

	// Turn submission rate limit per client
	RateLimitRPS   float64
	RateLimitBurst int

	// Logging
	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("database_url", "file:supportbot.db?mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("faq_path", "")
	v.SetDefault("mode", "")
	v.SetDefault("ai_base_url", "https://api.openai.com/v1")
	v.SetDefault("ai_api_key", "")
	v.SetDefault("ai_model", "gpt-4o-mini")
	v.SetDefault("ai_timeout_ms", 30000)
	v.SetDefault("history_window", 6)
	v.SetDefault("max_message_length", 4000)
	v.SetDefault("rate_limit_rps", 5.0)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from defaults, the optional YAML file at path,
// and SUPPORTBOT_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPPort:         v.GetInt("http_port"),
		DatabaseURL:      v.GetString("database_url"),
		FAQPath:          v.GetString("faq_path"),
		Mode:             strings.ToUpper(strings.TrimSpace(v.GetString("mode"))),
		AIBaseURL:        v.GetString("ai_base_url"),
		AIAPIKey:         v.GetString("ai_api_key"),
		AIModel:          v.GetString("ai_model"),
		AITimeout:        time.Duration(v.GetInt("ai_timeout_ms")) * time.Millisecond,
		HistoryWindow:    v.GetInt("history_window"),
		MaxMessageLength: v.GetInt("max_message_length"),
		RateLimitRPS:     v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:   v.GetInt("rate_limit_burst"),
		LogLevel:         strings.ToLower(v.GetString("log_level")),
		LogFormat:        strings.ToLower(v.GetString("log_format")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port %d out of range", c.HTTPPort))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("ai_timeout_ms must be positive"))
	}
	if c.HistoryWindow <= 0 {
		errs = append(errs, errors.New("history_window must be positive"))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("max_message_length must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
