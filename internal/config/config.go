package config

import "time"

// Config holds client configuration values.
type Config struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ReconcileWindow time.Duration `mapstructure:"reconcile_window" yaml:"reconcile_window"`
	ScrollBuffer    int           `mapstructure:"scroll_buffer" yaml:"scroll_buffer"`
	DataPath        string        `mapstructure:"data_path" yaml:"data_path"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile         string        `mapstructure:"log_file" yaml:"log_file"`
	MetricsAddr     string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	Denylist        []string      `mapstructure:"denylist" yaml:"denylist"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		BaseURL:         "http://localhost:8000",
		PollInterval:    3 * time.Second,
		ReconcileWindow: 30 * time.Second,
		ScrollBuffer:    2,
		DataPath:        "wirechat-poll.db",
		LogLevel:        "info",
		RateLimit:       10,
		RateBurst:       5,
		Denylist:        []string{"darn", "heck", "badword", "crap", "poop", "stupid"},
		ShutdownTimeout: 5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.ReconcileWindow != 0 {
		c.ReconcileWindow = other.ReconcileWindow
	}
	if other.ScrollBuffer != 0 {
		c.ScrollBuffer = other.ScrollBuffer
	}
	if other.DataPath != "" {
		c.DataPath = other.DataPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.MetricsAddr != "" {
		c.MetricsAddr = other.MetricsAddr
	}
	if other.RateLimit != 0 {
		c.RateLimit = other.RateLimit
	}
	if other.RateBurst != 0 {
		c.RateBurst = other.RateBurst
	}
	if len(other.Denylist) > 0 {
		c.Denylist = other.Denylist
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
