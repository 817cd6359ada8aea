package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLevel 测试日志级别解析
func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, logging.ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, logging.ParseLevel("warn"))
	assert.Equal(t, logrus.InfoLevel, logging.ParseLevel("verbose"))
}

// TestNewFromConfig_JSON 测试 JSON 日志包含默认字段
func TestNewFromConfig_JSON(t *testing.T) {
	logger, err := logging.NewFromConfig(&config.LogConfig{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.WithField("task_id", 7).Info("approval step processed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "approval step processed", entry["msg"])
	assert.Equal(t, "client-records", entry["service"])
	assert.Equal(t, float64(7), entry["task_id"])
}

// TestNewFromConfig_File 测试写入日志文件
func TestNewFromConfig_File(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewFromConfig(&config.LogConfig{Level: "debug", Format: "text", Output: "file", Dir: dir})
	require.NoError(t, err)

	logger.Debug("written to file")

	data, err := os.ReadFile(filepath.Join(dir, "client-records.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
