package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_JSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	InitLogger("fleet-service-test")
	defer Logger.SetOutput(os.Stdout)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	RequestLogger("req-1").Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "fleet-service-test", line["app"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
}

func TestInitLogger_TextPrefix(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_LEVEL", "not-a-level")
	InitLogger("fleet-service-test")
	defer Logger.SetOutput(os.Stdout)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	RequestLogger("").Info("ready")

	assert.Contains(t, buf.String(), "[fleet-service-test] ready")
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}
