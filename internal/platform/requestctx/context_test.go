package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if Logger(context.Background()) != NoopLogger() {
		t.Fatal("expected noop logger for empty context")
	}
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatal("expected stored logger")
	}
}

func TestTraceID(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "def"})
	if got := TraceID(ctx); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestIdempotencyKeyIgnoresBlank(t *testing.T) {
	ctx := WithIdempotencyKey(context.Background(), "   ")
	if got := IdempotencyKey(ctx); got != "" {
		t.Fatalf("expected blank key to be ignored, got %q", got)
	}
	ctx = WithIdempotencyKey(ctx, " key-1 ")
	if got := IdempotencyKey(ctx); got != "key-1" {
		t.Fatalf("expected trimmed key, got %q", got)
	}
}
