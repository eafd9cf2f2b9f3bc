package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.SourceDir)
	assert.Equal(t, "output.xlsx", cfg.OutputFile)
	assert.Equal(t, []string{"__MACOSX"}, cfg.ExcludeDirs)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.FileTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "occultation-observations", cfg.KafkaTopic)
	assert.False(t, cfg.SQLiteEnabled())
	assert.Empty(t, cfg.MetricsTextfile)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SOURCE_DIR", "/data/reports")
	t.Setenv("OUTPUT_FILE", "events.xlsx")
	t.Setenv("EXCLUDE_DIRS", "__MACOSX, .Trash ,")
	t.Setenv("WORKERS", "16")
	t.Setenv("FILE_TIMEOUT", "0s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "observations")
	t.Setenv("SQLITE_PATH", "/tmp/obs.db")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/occ.prom")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/data/reports", cfg.SourceDir)
	assert.Equal(t, "events.xlsx", cfg.OutputFile)
	assert.Equal(t, []string{"__MACOSX", ".Trash"}, cfg.ExcludeDirs)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, time.Duration(0), cfg.FileTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "observations", cfg.KafkaTopic)
	assert.True(t, cfg.SQLiteEnabled())
	assert.Equal(t, "/tmp/obs.db", cfg.SQLitePath)
	assert.Equal(t, "/var/lib/node_exporter/occ.prom", cfg.MetricsTextfile)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidFileTimeout(t *testing.T) {
	for _, v := range []string{"soon", "-1s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("FILE_TIMEOUT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "FILE_TIMEOUT")
		})
	}
}

func TestLoad_InvalidWorkers(t *testing.T) {
	for _, v := range []string{"0", "many", "1000"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("WORKERS", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "WORKERS")
		})
	}
}

func TestLoad_InvalidMaxUpload(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UPLOAD_BYTES")
}

func TestLoad_KafkaWithoutTopic(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_TOPIC", "")
	cfg, err := Load()
	// An empty KAFKA_TOPIC falls back to the default topic.
	require.NoError(t, err)
	assert.Equal(t, "occultation-observations", cfg.KafkaTopic)
}
