package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleConfig = `
feed:
  url: https://tracker.example/rss.xml
  timeout: 15s
tracker:
  cookies:
    uid: 12345
    pass: s3cret
    lf_session: abc
transmission:
  host: nas.local
  port: 9091
  username: admin
  password: hunter2
aliases:
  "Marvel's Agents of S.H.I.E.L.D.": Agents of SHIELD
blacklist:
  - Banned Show
subscriptions:
  Full Title: 720p
  Agents of SHIELD: 1080p
subscriptions_season:
  Full Title: 1080p
season_quality: MP4
dispatch:
  continue_on_error: true
history:
  path: /var/lib/feedgrab/history.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://tracker.example/rss.xml", cfg.Feed.URL)
	assert.Equal(t, 15*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, "LostFilm", cfg.Feed.Marker)

	assert.Equal(t, "nas.local", cfg.Transmission.Host)
	assert.Equal(t, "/transmission/rpc", cfg.Transmission.RPCPath)
	assert.Equal(t, 30*time.Second, cfg.Transmission.Timeout)

	// Name-keyed sections keep their case.
	assert.Equal(t, map[string]string{"Full Title": "720p", "Agents of SHIELD": "1080p"}, cfg.Subscriptions)
	assert.Equal(t, "Agents of SHIELD", cfg.Aliases["Marvel's Agents of S.H.I.E.L.D."])
	assert.Equal(t, map[string]string{"Full Title": "1080p"}, cfg.SeasonSubscriptions.Names)
	assert.Empty(t, cfg.SeasonSubscriptions.Wildcard)
	assert.Equal(t, "12345", cfg.Tracker.Cookies["uid"])

	assert.Equal(t, []string{"Banned Show"}, cfg.Blacklist)
	assert.Equal(t, "MP4", cfg.SeasonQuality)
	assert.True(t, cfg.Dispatch.ContinueOnError)
	assert.False(t, cfg.Dispatch.DryRun)
	assert.Equal(t, "/var/lib/feedgrab/history.db", cfg.History.Path)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad_SeasonWildcard(t *testing.T) {
	cfg, err := Load(writeConfig(t, "feed:\n  url: http://x\nsubscriptions_season: 1080p\n"))
	require.NoError(t, err)

	assert.Equal(t, "1080p", cfg.SeasonSubscriptions.Wildcard)
	assert.Empty(t, cfg.SeasonSubscriptions.Names)
	assert.Equal(t, "1080p", cfg.RunSettings().Rules.SeasonWildcard)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("FEEDGRAB_TRANSMISSION_PASSWORD", "from-env")
	t.Setenv("FEEDGRAB_DISPATCH_DRY_RUN", "true")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Transmission.Password)
	assert.True(t, cfg.Dispatch.DryRun)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidSeasonSubscriptions(t *testing.T) {
	_, err := Load(writeConfig(t, "subscriptions_season:\n  - 720p\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults plus url", func(c *Config) {}, true},
		{"missing url", func(c *Config) { c.Feed.URL = " " }, false},
		{"missing host", func(c *Config) { c.Transmission.Host = "" }, false},
		{"port zero", func(c *Config) { c.Transmission.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Transmission.Port = 70000 }, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Feed.URL = "http://tracker/rss"
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestDump_RedactsSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	data, err := cfg.Dump()
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "Full Title: 720p")
	assert.Equal(t, "hunter2", cfg.Transmission.Password, "Dump must not modify the config")
	assert.Equal(t, "s3cret", cfg.Tracker.Cookies["pass"])

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "30s", back["transmission"].(map[string]any)["timeout"])
}

func TestCookieHeader(t *testing.T) {
	tracker := TrackerConfig{Cookies: map[string]string{"uid": "1", "pass": "x", "lf_session": "abc"}}
	assert.Equal(t, "lf_session=abc;pass=x;uid=1", tracker.CookieHeader())
	assert.Empty(t, (&TrackerConfig{}).CookieHeader())
}

func TestRunSettings(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	s := cfg.RunSettings()
	assert.Equal(t, "LostFilm", s.Marker)
	assert.Equal(t, "lf_session=abc;pass=s3cret;uid=12345", s.Cookies)
	assert.Equal(t, "720p", s.Rules.Episodes["Full Title"])
	assert.Equal(t, "1080p", s.Rules.Seasons["Full Title"])
	assert.Equal(t, "MP4", s.Rules.GlobalSeasonQuality)
	assert.Contains(t, s.Rules.Blacklist, "Banned Show")
	assert.True(t, s.ContinueOnError)

	q := cfg.QueueConfig()
	assert.Equal(t, "nas.local", q.Host)
	assert.Equal(t, 30*time.Second, q.Timeout)

	f := cfg.FeedSettings()
	assert.Equal(t, s.Cookies, f.Cookie)
	assert.Equal(t, 15*time.Second, f.Timeout)
}

func TestQueueConfig_KeepsSubSecondTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, "feed:\n  url: http://x\ntransmission:\n  timeout: 1500ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.QueueConfig().Timeout)
}
