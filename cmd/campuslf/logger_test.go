package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(&levelRouter{
		level:  slog.LevelInfo,
		stdout: slog.NewTextHandler(&out, opts),
		stderr: slog.NewTextHandler(&errOut, opts),
	}).With("component", "test")

	logger.Debug("hidden")
	logger.Info("hello")
	logger.Warn("careful")
	logger.Error("broken")

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug record should be filtered")
	}
	if !strings.Contains(out.String(), "hello") || !strings.Contains(out.String(), "careful") {
		t.Errorf("expected info and warn on stdout, got %q", out.String())
	}
	if strings.Contains(out.String(), "broken") {
		t.Error("error record should not go to stdout")
	}
	if !strings.Contains(errOut.String(), "broken") || !strings.Contains(errOut.String(), "component=test") {
		t.Errorf("expected error with attrs on stderr, got %q", errOut.String())
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled")
	}
}
