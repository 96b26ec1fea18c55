package config

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctor-agent/internal/events"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"PORT", "BACKEND_URL", "MAX_FULLSCREEN_EXITS", "BACKEND_TIMEOUT", "EVENTS_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 3, cfg.MaxFullscreenExits)
	assert.Equal(t, 15*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 300, cfg.TimeWarningSeconds)
	assert.False(t, cfg.GroupingPreserveOrder)
	assert.False(t, cfg.Events.Enabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAX_FULLSCREEN_EXITS", "5")
	t.Setenv("BACKEND_TIMEOUT", "30")
	t.Setenv("FULLSCREEN_REENTRY_DELAY", "250ms")
	t.Setenv("GROUPING_PRESERVE_ORDER", "true")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxFullscreenExits)
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.FullscreenReentryDelay)
	assert.True(t, cfg.GroupingPreserveOrder)
}

func TestLoadConfig_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAX_FULLSCREEN_EXITS", "0")
	t.Setenv("BACKEND_URL", "not a url")

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestEventConfig_CreateEventPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	disabled := EventConfig{Enabled: false, Publisher: "kafka", SessionTopic: "s"}
	p, err := disabled.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.NopEventPublisher{}, p)

	mock := EventConfig{Enabled: true, Publisher: "mock", SessionTopic: "s"}
	p, err = mock.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.MockEventPublisher{}, p)
}

func TestEventConfig_GetKafkaBrokers(t *testing.T) {
	c := EventConfig{KafkaBrokers: "a:9092, b:9092,,"}
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.GetKafkaBrokers())
}

// chdir stands in for testing.T.Chdir (Go 1.24+): it switches the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
