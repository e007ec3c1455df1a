package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, uint16(8029), cfg.MetricsPort)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumpadm.yaml")
	content := "metricsPort: 9100\nlogLevel: debug\nsyncWrites: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(9100), cfg.MetricsPort)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.True(t, cfg.SyncWrites)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumpadm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metricsPort: [not a port"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestUnknownLogLevelFallsBack(t *testing.T) {
	cfg := Config{LogLevel: "chatty"}
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}
