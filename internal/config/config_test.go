package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "broad", cfg.Pipeline.Mode)
	assert.Equal(t, 7, cfg.Pipeline.HorizonDays)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 30, cfg.Pipeline.SensorWindowDays)
	assert.Equal(t, 365, cfg.Pipeline.HistoryWindowDays)
	assert.False(t, cfg.Pipeline.Snapshot)
	assert.Nil(t, cfg.Pipeline.RangeStart)
	assert.Nil(t, cfg.Pipeline.RangeEnd)

	assert.Equal(t, "localhost", cfg.SourceDB.Host)
	assert.Equal(t, 5432, cfg.SourceDB.Port)
	// 未单独配置特征库时沿用事件库
	assert.Equal(t, cfg.SourceDB, cfg.SinkDB)

	assert.False(t, cfg.Scorer.Enabled)
	assert.False(t, cfg.RunLock.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SOURCE_DB_HOST", "events.internal")
	t.Setenv("SOURCE_DB_NAME", "plc_events")
	t.Setenv("SINK_DB_HOST", "features.internal")
	t.Setenv("PIPELINE_MODE", "narrow")
	t.Setenv("PIPELINE_HORIZON_DAYS", "14")
	t.Setenv("PIPELINE_WORKERS", "8")
	t.Setenv("SCORER_ENABLED", "true")
	t.Setenv("SCORER_TIMEOUT", "45s")
	t.Setenv("RUN_LOCK_ENABLED", "true")
	t.Setenv("RUN_LOCK_TTL", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "events.internal", cfg.SourceDB.Host)
	assert.Equal(t, "plc_events", cfg.SourceDB.Database)
	assert.Equal(t, "features.internal", cfg.SinkDB.Host)
	// 特征库未覆盖的字段沿用事件库
	assert.Equal(t, "plc_events", cfg.SinkDB.Database)

	assert.Equal(t, "narrow", cfg.Pipeline.Mode)
	assert.Equal(t, 14, cfg.Pipeline.HorizonDays)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.True(t, cfg.Scorer.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Scorer.Timeout)
	assert.True(t, cfg.RunLock.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.RunLock.TTL)
}

func TestLoadRangeOverride(t *testing.T) {
	t.Setenv("RANGE_START", "2022-01-01")
	t.Setenv("RANGE_END", "2023-01-31")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Pipeline.RangeStart)
	require.NotNil(t, cfg.Pipeline.RangeEnd)
	assert.Equal(t, "2022-01-01", cfg.Pipeline.RangeStart.Format("2006-01-02"))
	assert.Equal(t, "2023-01-31", cfg.Pipeline.RangeEnd.Format("2006-01-02"))
}

func TestLoadInvalidRange(t *testing.T) {
	t.Setenv("RANGE_START", "not-a-date")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidMode(t *testing.T) {
	t.Setenv("PIPELINE_MODE", "wide")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRangeEndBeforeStart(t *testing.T) {
	t.Setenv("RANGE_START", "2023-02-01")
	t.Setenv("RANGE_END", "2023-01-01")
	_, err := Load()
	assert.Error(t, err)
}
