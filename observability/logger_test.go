package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/zeu5/self-parking/config"
)

func TestInitializeJSONLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	buf := new(bytes.Buffer)
	logger := Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "parking"}, zapcore.AddSync(buf))
	logger.Debug("episode terminated")
	logger.Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "parking", entry["logger"])
	assert.Equal(t, "episode terminated", entry["msg"])

	assert.Same(t, logger, GetLogger())
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	first := new(bytes.Buffer)
	second := new(bytes.Buffer)
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(second))

	GetLogger().Info("hello")
	assert.NotZero(t, first.Len())
	assert.Zero(t, second.Len())
}

func TestLevelFiltering(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := New(config.LoggerConfig{Level: "warn", Format: "console"}, zapcore.AddSync(buf))
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.Contains(out, "shown"))
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := New(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(buf))
	logger.Debug("hidden")
	logger.Info("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestLogFileIsJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "parking.log")
	logger := New(config.LoggerConfig{Level: "info", Format: "console", LogFile: file, MaxSize: 1}, zapcore.AddSync(new(bytes.Buffer)))
	logger.Info("to file")
	require.NoError(t, logger.Sync())

	bs, err := os.ReadFile(file)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(bs), &entry))
	assert.Equal(t, "to file", entry["msg"])
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
	Sync()
}
