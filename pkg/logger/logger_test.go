package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestWriterFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("component", "emitter"))
	l.Info("tick",
		String("symbol", "EURUSD_OTC"),
		Float64("price", 1.185),
		Int("n", 3),
		Duration("took", 1500*time.Millisecond),
		Bool("pullback", true),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "tick", got["message"])
	require.Equal(t, "emitter", got["component"])
	require.Equal(t, "EURUSD_OTC", got["symbol"])
	require.InDelta(t, 1.185, got["price"], 1e-12)
	require.EqualValues(t, 3, got["n"])
	require.EqualValues(t, 1500, got["took"])
	require.Equal(t, true, got["pullback"])
	require.Equal(t, "boom", got["error"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	require.Zero(t, buf.Len())
	l.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestWithStrings(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(Strings("topics", []string{"otc.ticks", "fx.reference"}))
	l.Info("consumer started", Int64("offset", 42))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, []interface{}{"otc.ticks", "fx.reference"}, got["topics"])
	require.EqualValues(t, 42, got["offset"])
}

func TestNewDefaults(t *testing.T) {
	l, err := New(&Config{Output: "stderr"})
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, l.zl.GetLevel())
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("nothing", String("k", "v"))
}
