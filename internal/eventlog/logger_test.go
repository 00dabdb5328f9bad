package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewWithCore(core), logs
}

func TestActivity(t *testing.T) {
	l, logs := newObserved()
	l.Activity(7, ActionLoginSuccess)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "user_activity", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(7), fields["account_id"])
	assert.Equal(t, ActionLoginSuccess, fields["action"])
}

func TestEvent(t *testing.T) {
	l, logs := newObserved()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.Event(Record{ID: "1", Topic: "tidb_changes", Partition: 2, Offset: 9, ProcessedAt: at, Event: map[string]any{"op": "c"}})

	entries := logs.FilterLoggerName("cdc").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tidb_changes", fields["topic"])
	assert.Equal(t, int64(2), fields["partition"])
	assert.Equal(t, int64(9), fields["offset"])
	ts, ok := fields["timestamp"].(time.Time)
	require.True(t, ok)
	assert.True(t, at.Equal(ts))
	assert.Equal(t, map[string]any{"op": "c"}, fields["event"])
}

func TestDecodeFailure_TruncatesRaw(t *testing.T) {
	l, logs := newObserved()
	raw := []byte(strings.Repeat("x", 1000))
	l.DecodeFailure("t", 0, 1, raw, errors.New("invalid character"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Len(t, fields["raw"], 256)
	assert.Equal(t, "invalid character", fields["error"])
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.log")
	l, err := New(Config{Path: path, MaxAge: time.Hour, Rotation: time.Hour})
	require.NoError(t, err)

	l.Activity(1, ActionRegister)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"action":"register"`)
	assert.Contains(t, string(data), `"logger":"user_activity"`)
}
