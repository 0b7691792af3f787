package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingHandler accepts every level and fails every record.
type failingHandler struct {
	slog.Handler
	err error
}

func (h failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h failingHandler) Handle(context.Context, slog.Record) error { return h.err }

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestMultiHandler_RoutesByLevel(t *testing.T) {
	var verbose, quiet bytes.Buffer
	h := NewMultiHandler(nil, textHandler(&verbose, slog.LevelDebug), nil, textHandler(&quiet, slog.LevelWarn))
	require.Len(t, h.handlers, 2)

	logger := slog.New(h)
	logger.Debug("slot reused")
	logger.Error("receiver dropped")

	assert.Contains(t, verbose.String(), "slot reused")
	assert.Contains(t, verbose.String(), "receiver dropped")
	assert.NotContains(t, quiet.String(), "slot reused")
	assert.Contains(t, quiet.String(), "receiver dropped")
}

func TestMultiHandler_Enabled(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))

	warnOnly := NewMultiHandler(textHandler(&buf, slog.LevelWarn))
	assert.False(t, warnOnly.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warnOnly.Enabled(ctx, slog.LevelWarn))

	mixed := NewMultiHandler(textHandler(&buf, slog.LevelWarn), textHandler(&buf, slog.LevelDebug))
	assert.True(t, mixed.Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	errGelf := errors.New("gelf unreachable")
	errInflux := errors.New("influx write failed")
	var buf bytes.Buffer

	h := NewMultiHandler(
		failingHandler{err: errGelf},
		textHandler(&buf, slog.LevelInfo),
		failingHandler{err: errInflux},
	)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "run finished", 0)
	err := h.Handle(context.Background(), r)

	require.Error(t, err)
	assert.ErrorIs(t, err, errGelf)
	assert.ErrorIs(t, err, errInflux)
	assert.Contains(t, buf.String(), "run finished", "healthy handler still receives the record")
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(textHandler(&a, slog.LevelInfo), textHandler(&b, slog.LevelInfo))

	assert.Same(t, h, h.WithGroup(""))

	derived := h.WithAttrs([]slog.Attr{slog.String("channel", "orders")}).WithGroup("run")
	slog.New(derived).Info("done", "sent", 10)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "channel=orders")
		assert.Contains(t, out, "run.sent=10")
	}

	// the original keeps its handlers untouched
	slog.New(h).Info("plain")
	assert.NotContains(t, a.String(), "msg=plain channel=orders")
}
