package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogAttrWire(t *testing.T) {
	tests := []struct {
		name     string
		attr     slog.Attr
		wantType string
		wantVal  string
	}{
		{
			name:     "string",
			attr:     slog.String("key", "value"),
			wantType: "string",
			wantVal:  "value",
		},
		{
			name:     "int64",
			attr:     slog.Int64("key", 123),
			wantType: "int64",
			wantVal:  "123",
		},
		{
			name:     "uint64",
			attr:     slog.Uint64("key", 7),
			wantType: "uint64",
			wantVal:  "7",
		},
		{
			name:     "bool",
			attr:     slog.Bool("key", true),
			wantType: "bool",
			wantVal:  "true",
		},
		{
			name:     "float64",
			attr:     slog.Float64("key", 1.23),
			wantType: "float64",
			wantVal:  "1.230000",
		},
		{
			name:     "time",
			attr:     slog.Time("key", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			wantType: "time",
			wantVal:  "2024-01-01T00:00:00Z",
		},
		{
			name:     "duration",
			attr:     slog.Duration("key", 1*time.Hour),
			wantType: "duration",
			wantVal:  "1h0m0s",
		},
		{
			name:     "error",
			attr:     slog.Any("key", errors.New("test error")),
			wantType: "error",
			wantVal:  "test error",
		},
		{
			name:     "nil",
			attr:     slog.Any("key", nil),
			wantType: "any",
			wantVal:  "<nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := toLogAttrWire(tt.attr)
			assert.Equal(t, tt.attr.Key, wire.Key)
			assert.Equal(t, tt.wantType, wire.Type)
			assert.Equal(t, tt.wantVal, wire.Value)
		})
	}
}

func TestToLogAttrWire_JSON(t *testing.T) {
	type libInfo struct {
		Name string `json:"name"`
	}
	obj := libInfo{Name: "Cling"}

	wire := toLogAttrWire(slog.Any("key", obj))
	assert.Equal(t, "json", wire.Type)

	var decoded libInfo
	require.NoError(t, json.Unmarshal([]byte(wire.Value), &decoded))
	assert.Equal(t, obj, decoded)
}

func TestToLogAttrWire_LogValuer(t *testing.T) {
	wire := toLogAttrWire(slog.Any("key", logValuer{val: "resolved"}))

	assert.Equal(t, "key", wire.Key)
	assert.Equal(t, "string", wire.Type)
	assert.Equal(t, "resolved", wire.Value)
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func TestFromLogAttrWire(t *testing.T) {
	assert.Equal(t, slog.Int64("n", 42), fromLogAttrWire(LogAttrWire{Key: "n", Type: "int64", Value: "42"}))
	assert.Equal(t, slog.Bool("ok", true), fromLogAttrWire(LogAttrWire{Key: "ok", Type: "bool", Value: "true"}))
	assert.Equal(t, slog.Duration("d", time.Second), fromLogAttrWire(LogAttrWire{Key: "d", Type: "duration", Value: "1s"}))
	// Malformed values degrade to strings.
	assert.Equal(t, slog.String("n", "x"), fromLogAttrWire(LogAttrWire{Key: "n", Type: "int64", Value: "x"}))
	assert.Equal(t, slog.String("e", "boom"), fromLogAttrWire(LogAttrWire{Key: "e", Type: "error", Value: "boom"}))
}

func TestReplay(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, WithFormat(FormatJSON), WithLevel(slog.LevelDebug)))

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "dictionary missing", 0)
	record.AddAttrs(slog.String("class", "TClingClassInfo"), slog.Int64("count", 3))
	data, err := Encode(record)
	require.NoError(t, err)

	require.NoError(t, Replay(context.Background(), logger, "Cling", data))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "WARN", out["level"])
	assert.Equal(t, "dictionary missing", out["msg"])
	assert.Equal(t, "Cling", out["module"])
	assert.Equal(t, "TClingClassInfo", out["class"])
	assert.EqualValues(t, 3, out["count"])
}

func TestReplay_FilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf))

	data, err := json.Marshal(LogMessageWire{Level: "DEBUG", Message: "quiet"})
	require.NoError(t, err)
	require.NoError(t, Replay(context.Background(), logger, "Core", data))
	assert.Empty(t, buf.String())
}

func TestReplay_InvalidPayload(t *testing.T) {
	err := Replay(context.Background(), slog.Default(), "Core", []byte("{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Core")
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler(&bytes.Buffer{})
	assert.True(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestNewHandler_Options(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, WithLevel(slog.LevelDebug), WithFormat(FormatJSON))
	assert.True(t, h.Enabled(context.TODO(), slog.LevelDebug))

	slog.New(h).Debug("hello")
	assert.True(t, json.Valid(buf.Bytes()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"INFO+2", slog.LevelInfo + 2},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
