package utils

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitLogger(LogOptions{Level: "debug", FilePath: filepath.Join(dir, "logs", "app.log")}))
	assert.Equal(t, logrus.DebugLevel, GetLogger().GetLevel())

	assert.Error(t, InitLogger(LogOptions{Level: "loud"}))

	require.NoError(t, InitLogger(LogOptions{}))
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
}

func TestCustomFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(LogOptions{Level: "info"})
	require.NoError(t, err)
	logger.SetOutput(&buf)

	logger.WithField("path", "/facts/random").Info("mock matched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mock matched", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "/facts/random", entry["path"])
	assert.Contains(t, entry, "@timestamp")
	assert.Contains(t, entry, "pid")
	assert.Contains(t, entry, "goroutine_id")
	assert.Contains(t, entry["file"], "log_test.go:")
	assert.Contains(t, entry["func"], "TestCustomFormatter")
}
