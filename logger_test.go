package tilecore

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsSilent(t *testing.T) {
	SetLogger(nil)
	l := Logger()
	l.Info("should not appear")
	require.False(t, l.Enabled(context.Background(), slog.LevelInfo))
}

func TestSetLoggerReplacesHandler(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)
	SetLogger(slog.New(h))

	Logger().Info("hello", "k", "v")
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "k=v")
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	SetLogger(nil)

	Logger().Warn("quiet please")
	require.Equal(t, 0, buf.Len())
}
