package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "edumon.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edumon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Europe/Zurich\nlocales: [fr]\nlog_level: loud\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Zurich", cfg.Timezone)
	assert.Equal(t, []string{"fr"}, cfg.Locales)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultRebalanceCron, cfg.RebalanceCron)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Zurich", loc.String())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edumon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edumon.yaml")
	cfg := DefaultConfig()
	cfg.Listen = ":9090"
	cfg.KeywordsFile = "/etc/edumon/keywords.yaml"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, filepath.Join(DefaultDataDir, "edumon.db"), loaded.DatabasePath())
}

func TestBadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err := cfg.Location()
	assert.Error(t, err)
}

func TestSubscriptionsGetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edumon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
subscriptions:
  - url: https://uni.example/exams.ics
  - id: sports
    kind: holidays
    url: https://uni.example/holidays.ics
    interval_minutes: 1440
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, SubscriptionConfig{ID: "subscription-1", Kind: "exams", URL: "https://uni.example/exams.ics"}, cfg.Subscriptions[0])
	assert.Equal(t, "sports", cfg.Subscriptions[1].ID)
	assert.Equal(t, 1440, cfg.Subscriptions[1].IntervalMinutes)
}
