package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func swapObserved(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	orig := globalLogger
	globalLogger = zap.New(core)
	t.Cleanup(func() { globalLogger = orig })
	return logs
}

func TestWithContextTagsRunID(t *testing.T) {
	logs := swapObserved(t)

	ctx := context.WithValue(context.Background(), RunIDKey, "sample1-1700000000")
	WithContext(ctx).Info("pipeline started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sample1-1700000000", entries[0].ContextMap()["run_id"])
}

func TestWithContextWithoutRunID(t *testing.T) {
	logs := swapObserved(t)

	WithContext(context.Background()).Info("pipeline started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "run_id")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "shouting", Encoding: "console"})
	require.Error(t, err)
}
