package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	l.Info("dropped")
	l.WithField("ord_number", "ORD20250601-ABCDE").Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "ORD20250601-ABCDE", entry["ord_number"])
	assert.Equal(t, "warning", entry["level"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewWithOutput(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	_, ok := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
