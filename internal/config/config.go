// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fetch engine selectors.
const (
	EngineColly    = "colly"
	EngineHeadless = "headless"
)

// Config captures all configuration knobs loaded via Viper. Values come from
// a config file, MDCRAWL_* environment variables, or CLI flags.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlerConfig carries the defaults applied to runs when the caller leaves a
// knob unset.
type CrawlerConfig struct {
	OutputDir       string `mapstructure:"output_dir"`
	RunPrefix       string `mapstructure:"run_prefix"`
	MaxDepthDefault int    `mapstructure:"max_depth_default"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
	DelayMS         int    `mapstructure:"delay_ms"`
	Concurrency     int    `mapstructure:"concurrency"`
	SameDomainOnly  bool   `mapstructure:"same_domain_only"`
}

// FetchConfig selects and tunes the fetch engine.
type FetchConfig struct {
	Engine         string         `mapstructure:"engine"`
	UserAgent      string         `mapstructure:"user_agent"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds"`
	RespectRobots  bool           `mapstructure:"respect_robots"`
	DomainRPS      float64        `mapstructure:"domain_rps"`
	Headless       HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig tunes the chromedp engine.
type HeadlessConfig struct {
	MaxParallel       int `mapstructure:"max_parallel"`
	NavTimeoutSeconds int `mapstructure:"nav_timeout_seconds"`
}

// ServerConfig controls the HTTP serve mode.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HistoryConfig controls the cross-run history index.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MDCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("crawler.output_dir", "crawls")
	v.SetDefault("crawler.run_prefix", "")
	v.SetDefault("crawler.max_depth_default", 1)
	v.SetDefault("crawler.max_pages_default", 5)
	v.SetDefault("crawler.delay_ms", 250)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.same_domain_only", true)
	v.SetDefault("fetch.engine", EngineColly)
	v.SetDefault("fetch.user_agent", "mdcrawl/0.1")
	v.SetDefault("fetch.timeout_seconds", 45)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.domain_rps", 2.0)
	v.SetDefault("fetch.headless.max_parallel", 1)
	v.SetDefault("fetch.headless.nav_timeout_seconds", 25)
	v.SetDefault("server.port", 8080)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "crawls/history.db")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.MaxDepthDefault < 0 {
		return fmt.Errorf("crawler.max_depth_default must be >= 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 {
		return fmt.Errorf("crawler.max_pages_default must be > 0")
	}
	if c.Crawler.DelayMS < 0 {
		return fmt.Errorf("crawler.delay_ms must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	switch c.Fetch.Engine {
	case EngineColly, EngineHeadless:
	default:
		return fmt.Errorf("fetch.engine must be %q or %q", EngineColly, EngineHeadless)
	}
	if c.Fetch.UserAgent == "" {
		return fmt.Errorf("fetch.user_agent must be set")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.Engine == EngineHeadless && c.Fetch.Headless.MaxParallel <= 0 {
		return fmt.Errorf("fetch.headless.max_parallel must be > 0 when the headless engine is selected")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}

// FetchTimeout converts the configured timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetch.Headless.NavTimeoutSeconds) * time.Second
}
