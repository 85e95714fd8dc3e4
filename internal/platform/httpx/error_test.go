package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hanko-field/bookstore/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rec := httptest.NewRecorder()

	err := NewError("insufficient_stock", "only 2\nleft", http.StatusBadRequest).
		WithDetails(map[string]any{"available": 2, "success": true})
	WriteError(ctx, rec, err)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]any
	if decodeErr := json.Unmarshal(rec.Body.Bytes(), &body); decodeErr != nil {
		t.Fatalf("decode: %v", decodeErr)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false to survive details override, got %v", body["success"])
	}
	if body["error"] != "insufficient_stock" {
		t.Fatalf("unexpected code %v", body["error"])
	}
	if body["message"] != "only 2 left" {
		t.Fatalf("expected newline sanitised, got %q", body["message"])
	}
	if body["trace_id"] != "trace-1" {
		t.Fatalf("expected trace id, got %v", body["trace_id"])
	}
	if body["available"] != float64(2) {
		t.Fatalf("expected detail field, got %v", body["available"])
	}
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	err := NewError("boom", "boom", 0)
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 default, got %d", err.Status)
	}
}
