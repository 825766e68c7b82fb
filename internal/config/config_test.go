package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ":8080", cfg.ListenAddr())
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.DatabasePath)
	require.Equal(t, 24*time.Hour, cfg.DefaultCoolingOff)
	require.Equal(t, 2*time.Second, cfg.BidCooldown)
	require.Equal(t, 64, cfg.SubscriberBuffer)
	require.True(t, cfg.MetricsEnabled)
	require.False(t, cfg.SeedDemo)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BIDWAR_PORT", "9090")
	t.Setenv("BIDWAR_LOG_LEVEL", "debug")
	t.Setenv("BIDWAR_DATABASE_PATH", "/tmp/bidwar.sqlite")
	t.Setenv("BIDWAR_DEFAULT_COOLING_OFF", "90m")
	t.Setenv("BIDWAR_BID_COOLDOWN", "0s")
	t.Setenv("BIDWAR_SUBSCRIBER_BUFFER", "8")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr())
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/tmp/bidwar.sqlite", cfg.DatabasePath)
	require.Equal(t, 90*time.Minute, cfg.DefaultCoolingOff)
	require.Zero(t, cfg.BidCooldown)
	require.Equal(t, 8, cfg.SubscriberBuffer)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "negative_cooling_off", key: "BIDWAR_DEFAULT_COOLING_OFF", value: "-1h"},
		{name: "negative_cooldown", key: "BIDWAR_BID_COOLDOWN", value: "-1s"},
		{name: "zero_buffer", key: "BIDWAR_SUBSCRIBER_BUFFER", value: "0"},
		{name: "unparsable_duration", key: "BIDWAR_BID_COOLDOWN", value: "soon"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
