package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/preview-forge/configs"
	"github.com/lepinkainen/preview-forge/pkg/cache"
	"github.com/lepinkainen/preview-forge/pkg/filesystem"
	"github.com/lepinkainen/preview-forge/pkg/ratelimit"
)

// Config holds the central application configuration
type Config struct {
	// Scraper configuration
	Scraper struct {
		UserAgent        string `mapstructure:"user_agent"`         // Self-identifying UA for the polite scrape
		BrowserUserAgent string `mapstructure:"browser_user_agent"` // Browser UA for the fallback pass
	} `mapstructure:"scraper"`

	// Microlink API configuration
	Microlink struct {
		BaseURL string `mapstructure:"base_url"` // API endpoint override
	} `mapstructure:"microlink"`

	// Cache configuration
	Cache struct {
		DBPath string `mapstructure:"db_path"` // SQLite database file path
	} `mapstructure:"cache"`

	// HTTP API server configuration
	Server struct {
		ListenAddr string `mapstructure:"listen_addr"` // Address for the serve command
	} `mapstructure:"server"`

	// Resolver timing configuration
	Resolver struct {
		CooldownSeconds       int `mapstructure:"cooldown_seconds"`        // Per-URL spacing between live fetches
		MaxConcurrent         int `mapstructure:"max_concurrent"`          // Parallel resolutions in a batch
		BatchStaggerMillis    int `mapstructure:"batch_stagger_ms"`        // Launch spread within a batch
		AttemptTimeoutSeconds int `mapstructure:"attempt_timeout_seconds"` // Per-source ceiling
		TotalTimeoutSeconds   int `mapstructure:"total_timeout_seconds"`   // Whole-chain ceiling
	} `mapstructure:"resolver"`

	// Per-domain rate budgets, keyed by domain substring
	RateLimits map[string]RateBudget `mapstructure:"rate_limits"`
}

// RateBudget is one domain's request allowance per fixed window.
type RateBudget struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// Budgets converts the configured rate limits into limiter budgets.
func (c *Config) Budgets() map[string]ratelimit.Budget {
	if len(c.RateLimits) == 0 {
		return nil
	}
	budgets := make(map[string]ratelimit.Budget, len(c.RateLimits))
	for domain, b := range c.RateLimits {
		budgets[domain] = ratelimit.Budget{
			MaxRequests: b.MaxRequests,
			Window:      time.Duration(b.WindowSeconds) * time.Second,
		}
	}
	return budgets
}

// CooldownDuration returns the per-URL cooldown as a duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Resolver.CooldownSeconds) * time.Second
}

// BatchStagger returns the batch launch spread as a duration.
func (c *Config) BatchStagger() time.Duration {
	return time.Duration(c.Resolver.BatchStaggerMillis) * time.Millisecond
}

// AttemptTimeout returns the per-source ceiling as a duration.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Resolver.AttemptTimeoutSeconds) * time.Second
}

// TotalTimeout returns the whole-chain ceiling as a duration.
func (c *Config) TotalTimeout() time.Duration {
	return time.Duration(c.Resolver.TotalTimeoutSeconds) * time.Second
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	// If path is relative, try current directory first, then executable directory
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			if execPath, err := filesystem.GetDefaultPath(path); err == nil {
				if _, err := os.Stat(execPath); err == nil {
					path = execPath
				}
			}
			// If both fail, use original path (current directory) and let Viper handle the error
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set default values
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.browser_user_agent", "")
	v.SetDefault("microlink.base_url", "")
	v.SetDefault("cache.db_path", cache.DefaultDBFile)
	v.SetDefault("server.listen_addr", ":8080")

	v.SetDefault("resolver.cooldown_seconds", 3)
	v.SetDefault("resolver.max_concurrent", 5)
	v.SetDefault("resolver.batch_stagger_ms", 100)
	v.SetDefault("resolver.attempt_timeout_seconds", 12)
	v.SetDefault("resolver.total_timeout_seconds", 45)

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		// If config file doesn't exist, that's okay - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The embedded platform table seeds the per-domain budgets, so a config
	// file only names the domains it wants to change. Domain keys contain
	// dots, so the merge happens here rather than through viper defaults.
	if defaults, err := configs.Load(); err == nil {
		if config.RateLimits == nil {
			config.RateLimits = make(map[string]RateBudget, len(defaults.RateLimits))
		}
		for domain, b := range defaults.RateLimits {
			if _, ok := config.RateLimits[domain]; !ok {
				config.RateLimits[domain] = RateBudget{
					MaxRequests:   b.MaxRequests,
					WindowSeconds: b.WindowSeconds,
				}
			}
		}
	}

	return &config, nil
}
