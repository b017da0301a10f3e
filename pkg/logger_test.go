package pkg_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/central-university-dev/go-nats-updater/pkg"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, pkg.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, pkg.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, pkg.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, pkg.ParseLevel("verbose"))
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer

	logger := pkg.NewLogger(&buf, "info")
	logger.Debug("скрыто")
	logger.Info("видно", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, `"msg":"видно"`)
	assert.Contains(t, out, `"key":"value"`)
}
