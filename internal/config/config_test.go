package config

import (
	"testing"
	"time"

	"fatigue-detector/internal/classifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.False(t, cfg.DatabaseEnabled())
	assert.Equal(t, classifier.DefaultConfig(), cfg.Classifier())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EYE_AR_THRESHOLD", "0.21")
	t.Setenv("EAR_CONSECUTIVE_FRAMES", "5")
	t.Setenv("HEAD_ANGLE_THRESHOLD", "25")
	t.Setenv("SESSION_IDLE_TTL", "90s")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	c := cfg.Classifier()
	assert.Equal(t, 0.21, c.EyeARThreshold)
	assert.Equal(t, 5, c.EARConsecutiveFrames)
	assert.Equal(t, 25.0, c.HeadAngleThresholdDegrees)
	assert.Equal(t, 90*time.Second, cfg.SessionIdleTTL)
	assert.True(t, cfg.DatabaseEnabled())
	assert.NotContains(t, cfg.DSNForLog(), "s3cret")
	assert.Contains(t, cfg.DSN(), "password=s3cret")
}

func TestLoadConfigRejectsInvertedBands(t *testing.T) {
	t.Setenv("DROWSINESS_THRESHOLD", "0.95")
	t.Setenv("CRITICAL_THRESHOLD", "0.9")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsBadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestUnparsableValuesFallBack(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "thirty")
	t.Setenv("MAR_THRESHOLD", "wide")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Detection.HistoryWindow)
	assert.Equal(t, 0.5, cfg.Detection.MARThreshold)
}

func TestCORSOriginList(t *testing.T) {
	cfg := &Config{CORSOrigins: " http://a.local, ,http://b.local "}
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORSOriginList())
}
