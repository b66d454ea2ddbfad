package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/slipstream/feedgrab/internal/downloader/types"
	"github.com/slipstream/feedgrab/internal/feed"
	"github.com/slipstream/feedgrab/internal/logger"
	"github.com/slipstream/feedgrab/internal/release"
	"github.com/slipstream/feedgrab/internal/rsssync"
)

const redacted = "********"

// Config holds all application configuration.
//
// Sections keyed by release name (aliases, subscriptions, subscriptions_season)
// and the tracker cookies are case sensitive. They are decoded from the config
// file directly because viper folds map keys to lower case.
type Config struct {
	Feed         FeedConfig         `mapstructure:"feed" yaml:"feed"`
	Tracker      TrackerConfig      `mapstructure:"tracker" yaml:"tracker"`
	Transmission TransmissionConfig `mapstructure:"transmission" yaml:"transmission"`

	Aliases             map[string]string   `mapstructure:"-" yaml:"aliases,omitempty"`
	Blacklist           []string            `mapstructure:"blacklist" yaml:"blacklist,omitempty"`
	Subscriptions       map[string]string   `mapstructure:"-" yaml:"subscriptions,omitempty"`
	SeasonSubscriptions SeasonSubscriptions `mapstructure:"-" yaml:"subscriptions_season,omitempty"`
	SeasonQuality       string              `mapstructure:"season_quality" yaml:"season_quality,omitempty"`

	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Lock     LockConfig     `mapstructure:"lock" yaml:"lock"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// FeedConfig holds the tracker feed location.
type FeedConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Marker  string        `mapstructure:"marker" yaml:"marker"`
}

// TrackerConfig holds the tracker session cookies.
type TrackerConfig struct {
	Cookies map[string]string `mapstructure:"-" yaml:"cookies,omitempty"`
}

// CookieHeader joins the cookies as "k=v;k2=v2", sorted by name.
func (t *TrackerConfig) CookieHeader() string {
	names := make([]string, 0, len(t.Cookies))
	for name := range t.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+t.Cookies[name])
	}
	return strings.Join(pairs, ";")
}

// TransmissionConfig holds the job queue connection.
type TransmissionConfig struct {
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	UseSSL   bool          `mapstructure:"use_ssl" yaml:"use_ssl"`
	RPCPath  string        `mapstructure:"rpc_path" yaml:"rpc_path"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DispatchConfig controls how accepted items are submitted.
type DispatchConfig struct {
	DryRun          bool `mapstructure:"dry_run" yaml:"dry_run"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error"`
}

// HistoryConfig holds the dispatch history database location. An empty path
// disables history.
type HistoryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LockConfig holds the single-instance lock file location.
type LockConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SeasonSubscriptions is either a per-name quality map or a single quality
// applied to every name (the wildcard).
type SeasonSubscriptions struct {
	Names    map[string]string
	Wildcard string
}

// UnmarshalYAML accepts a mapping or a scalar.
func (s *SeasonSubscriptions) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		return node.Decode(&s.Wildcard)
	case yaml.MappingNode:
		return node.Decode(&s.Names)
	default:
		return fmt.Errorf("subscriptions_season: expected a mapping or a quality, got %s", node.Tag)
	}
}

// MarshalYAML renders the form it was read from.
func (s SeasonSubscriptions) MarshalYAML() (any, error) {
	if s.Wildcard != "" {
		return s.Wildcard, nil
	}
	return s.Names, nil
}

// IsZero reports whether no season subscriptions are configured.
func (s SeasonSubscriptions) IsZero() bool {
	return s.Wildcard == "" && len(s.Names) == 0
}

// nameKeyed mirrors the case-sensitive sections of the config file.
type nameKeyed struct {
	Tracker struct {
		Cookies map[string]string `yaml:"cookies"`
	} `yaml:"tracker"`
	Aliases             map[string]string   `yaml:"aliases"`
	Subscriptions       map[string]string   `yaml:"subscriptions"`
	SeasonSubscriptions SeasonSubscriptions `yaml:"subscriptions_season"`
}

// Default returns a Config with default values.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.feedgrab")
		v.AddConfigPath("/etc/feedgrab")
	}

	v.SetEnvPrefix("FEEDGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fileFound = false
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if fileFound {
		if err := cfg.loadNameKeyed(v.ConfigFileUsed()); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) loadNameKeyed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw nameKeyed
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.Tracker.Cookies = raw.Tracker.Cookies
	c.Aliases = raw.Aliases
	c.Subscriptions = raw.Subscriptions
	c.SeasonSubscriptions = raw.SeasonSubscriptions
	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.marker", rsssync.DefaultSourceMarker)

	v.SetDefault("transmission.host", "localhost")
	v.SetDefault("transmission.port", 9091)
	v.SetDefault("transmission.username", "")
	v.SetDefault("transmission.password", "")
	v.SetDefault("transmission.use_ssl", false)
	v.SetDefault("transmission.rpc_path", "/transmission/rpc")
	v.SetDefault("transmission.timeout", 30*time.Second)

	v.SetDefault("blacklist", []string{})
	v.SetDefault("season_quality", "")

	v.SetDefault("dispatch.dry_run", false)
	v.SetDefault("dispatch.continue_on_error", false)

	v.SetDefault("history.path", "")
	v.SetDefault("lock.path", filepath.Join(os.TempDir(), "feedgrab.lock"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// Validate reports the first setting that makes a run impossible.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Feed.URL) == "":
		return errors.New("feed.url is required")
	case strings.TrimSpace(c.Transmission.Host) == "":
		return errors.New("transmission.host is required")
	case c.Transmission.Port < 1 || c.Transmission.Port > 65535:
		return fmt.Errorf("transmission.port %d is out of range", c.Transmission.Port)
	case c.Logging.Format != "console" && c.Logging.Format != "json":
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// Dump renders the effective configuration as YAML with secrets redacted.
func (c *Config) Dump() ([]byte, error) {
	out := *c
	if out.Transmission.Password != "" {
		out.Transmission.Password = redacted
	}
	if len(c.Tracker.Cookies) > 0 {
		out.Tracker.Cookies = make(map[string]string, len(c.Tracker.Cookies))
		for name := range c.Tracker.Cookies {
			out.Tracker.Cookies[name] = redacted
		}
	}
	return yaml.Marshal(&out)
}

// RunSettings converts the subscription sections into dispatcher settings.
func (c *Config) RunSettings() *rsssync.Settings {
	return &rsssync.Settings{
		Marker:  c.Feed.Marker,
		Cookies: c.Tracker.CookieHeader(),
		Aliases: release.Aliases(c.Aliases),
		Rules: rsssync.Rules{
			Episodes:            c.Subscriptions,
			Seasons:             c.SeasonSubscriptions.Names,
			SeasonWildcard:      c.SeasonSubscriptions.Wildcard,
			GlobalSeasonQuality: c.SeasonQuality,
			Blacklist:           rsssync.NewBlacklist(c.Blacklist),
		},
		DryRun:          c.Dispatch.DryRun,
		ContinueOnError: c.Dispatch.ContinueOnError,
	}
}

// QueueConfig returns the job queue connection settings.
func (c *Config) QueueConfig() *types.ClientConfig {
	return &types.ClientConfig{
		Host:     c.Transmission.Host,
		Port:     c.Transmission.Port,
		Username: c.Transmission.Username,
		Password: c.Transmission.Password,
		UseSSL:   c.Transmission.UseSSL,
		RPCPath:  c.Transmission.RPCPath,
		Timeout:  c.Transmission.Timeout,
	}
}

// FeedSettings returns the feed client settings.
func (c *Config) FeedSettings() feed.Settings {
	return feed.Settings{
		URL:     c.Feed.URL,
		Cookie:  c.Tracker.CookieHeader(),
		Timeout: c.Feed.Timeout,
	}
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Path:       c.Logging.Path,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}
