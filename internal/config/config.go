// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Accounts  []AccountConfig `mapstructure:"accounts"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// AccountConfig holds the credentials for one crawler identity.
type AccountConfig struct {
	Name    string `mapstructure:"name"`
	Phone   string `mapstructure:"phone"`
	APIID   int    `mapstructure:"api_id"`
	APIHash string `mapstructure:"api_hash"`
}

// CrawlerConfig governs scheduler behavior and daily quotas.
type CrawlerConfig struct {
	PerAccountDailyCap int           `mapstructure:"per_account_daily_cap"`
	GlobalDailyCap     int           `mapstructure:"global_daily_cap"`
	MessagesPerGroup   int           `mapstructure:"messages_per_group"`
	InterJoinDelay     time.Duration `mapstructure:"inter_join_delay"`
	Simulation         bool          `mapstructure:"simulation"`
	ScrapeExisting     bool          `mapstructure:"scrape_existing"`
	CategoryFilter     string        `mapstructure:"category_filter"`
}

// RateLimitConfig sets the minimum spacing between remote operations.
type RateLimitConfig struct {
	GroupJoinDelay   time.Duration `mapstructure:"group_join_delay"`
	MessageReadDelay time.Duration `mapstructure:"message_read_delay"`
	MinDelay         time.Duration `mapstructure:"min_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
}

// StorageConfig selects and configures the relational store.
type StorageConfig struct {
	Provider    string `mapstructure:"provider"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// PathsConfig locates on-disk inputs and outputs.
type PathsConfig struct {
	Catalog     string `mapstructure:"catalog"`
	DataDir     string `mapstructure:"data_dir"`
	SessionsDir string `mapstructure:"sessions_dir"`
	DedupeFile  string `mapstructure:"dedupe_file"`
}

// ServerConfig controls the read-only stats HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TGCRAWL")
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
	v.SetDefault("logging.development", false)

	v.SetDefault("crawler.per_account_daily_cap", 10)
	v.SetDefault("crawler.global_daily_cap", 40)
	v.SetDefault("crawler.messages_per_group", 100)
	v.SetDefault("crawler.inter_join_delay", "5s")
	v.SetDefault("crawler.simulation", false)
	v.SetDefault("crawler.scrape_existing", true)
	v.SetDefault("crawler.category_filter", "")

	v.SetDefault("rate_limit.group_join_delay", "5s")
	v.SetDefault("rate_limit.message_read_delay", "1s")
	v.SetDefault("rate_limit.min_delay", "2s")
	v.SetDefault("rate_limit.max_delay", "8s")

	v.SetDefault("storage.provider", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/app.db")

	v.SetDefault("paths.catalog", "universal_groups.json")
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.sessions_dir", "sessions")
	v.SetDefault("paths.dedupe_file", "data/joined_groups.json")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
}

// Validate checks cross-field constraints that Viper cannot express.
func (c Config) Validate() error {
	if c.Crawler.PerAccountDailyCap < 0 {
		return fmt.Errorf("crawler.per_account_daily_cap must be >= 0")
	}
	if c.Crawler.GlobalDailyCap < 0 {
		return fmt.Errorf("crawler.global_daily_cap must be >= 0")
	}
	if c.Crawler.MessagesPerGroup <= 0 {
		return fmt.Errorf("crawler.messages_per_group must be > 0")
	}
	if c.RateLimit.MinDelay > c.RateLimit.MaxDelay {
		return fmt.Errorf("rate_limit.min_delay must not exceed rate_limit.max_delay")
	}
	switch c.Storage.Provider {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	if c.Storage.Provider == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres provider")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be a valid TCP port")
	}
	return nil
}
