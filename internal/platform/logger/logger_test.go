package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestSetupAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		logger, err := Setup(level)
		if err != nil {
			t.Errorf("Setup(%q): expected no error, got %v", level, err)
		}
		if logger == nil {
			t.Errorf("Setup(%q): expected a logger", level)
		}
	}
}

func TestSetupFallsBackOnUnknownLevel(t *testing.T) {
	logger, err := Setup("verbose")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if logger == nil {
		t.Fatal("Expected a logger despite invalid level")
	}
}

func TestFromContext(t *testing.T) {
	base := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), base)

	if got := FromContext(ctx); got != base {
		t.Error("Expected the logger stored in the context")
	}

	if got := FromContext(context.Background()); got == nil {
		t.Error("Expected fallback to the default logger")
	}
}

func TestFromContextOrDefault(t *testing.T) {
	def := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if got := FromContextOrDefault(context.Background(), def); got != def {
		t.Error("Expected the provided default logger")
	}

	stored := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), stored)
	if got := FromContextOrDefault(ctx, def); got != stored {
		t.Error("Expected the logger stored in the context to win")
	}
}
