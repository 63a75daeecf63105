package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timeZero time.Time

func TestContextHandler_AddsAttrsPerRecord(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		calls++
		return []slog.Attr{slog.Int("call", calls)}
	})

	logger := slog.New(h)
	logger.Info("a")
	logger.Info("b")

	assert.Contains(t, buf.String(), "msg=a call=1")
	assert.Contains(t, buf.String(), "msg=b call=2")
}

func TestContextHandler_EmptyProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr { return nil })

	slog.New(h).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain\n")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)

	slog.New(h).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestContextHandler_KeepsProviderThroughDerivation(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("scenario", "s-9")}
	})

	slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "session")})).Info("derived")
	assert.Contains(t, buf.String(), "component=session")
	assert.Contains(t, buf.String(), "scenario=s-9")

	assert.Same(t, h, h.WithGroup(""))
}
