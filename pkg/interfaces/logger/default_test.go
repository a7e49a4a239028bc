package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/pkg/interfaces/logger"
)

func TestDefaultLogger(t *testing.T) {
	b := bytes.NewBuffer(nil)
	zl := zerolog.New(b).Level(zerolog.DebugLevel)
	l := &logger.DefaultLogger{Logger: &zl}

	l.Error(errors.New("boom"), "publish failed", "system/com.example", "s1")

	line := map[string]string{}
	require.NoError(t, json.Unmarshal(b.Bytes(), &line))
	require.Equal(t, "error", line["level"])
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "system/com.example", line["service"])
	require.Equal(t, "s1", line["session"])
	require.Equal(t, "publish failed", line["message"])
}

func TestDefaultLogger_ZeroValue(t *testing.T) {
	l := &logger.DefaultLogger{}
	require.NotPanics(t, func() {
		l.Debug("hello", "app/x", "")
	})
}
