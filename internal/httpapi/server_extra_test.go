package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"dingd/pkg/types"
)

// blockService blocks robot callbacks until the context is done.
type blockService struct{ mockService }

func (b *blockService) HandleMessage(ctx context.Context, appKey string, p *types.InboundPayload) (types.MessageResult, error) {
	<-ctx.Done()
	return types.MessageResult{}, ctx.Err()
}

func TestRobotLogsWithZerolog(t *testing.T) {
	// Install a zerolog logger to exercise the zlog != nil branches
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callbacks/bot/robot?log=debug", bytes.NewBufferString(`{"text":{"content":"hi"}}`))
	req.Header.Set("Content-Type", "application/json")
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with debug logging, got %d", w.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("robot callback start")) || !bytes.Contains(buf.Bytes(), []byte("robot callback end")) {
		t.Fatalf("missing request logs: %s", buf.String())
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	// Enable CORS temporarily
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/handlers", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestRobotTimeoutReturns500(t *testing.T) {
	defer SetCallbackTimeoutSeconds(0)
	SetCallbackTimeoutSeconds(1)

	h := NewMux(&blockService{})
	req := httptest.NewRequest(http.MethodPost, "/callbacks/bot/robot", bytes.NewBufferString(`{"text":{"content":"x"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on timeout, got %d", rec.Code)
	}
}

func TestServerShutdownCancelsRobotCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	defer SetBaseContext(nil)
	cancel()

	h := NewMux(&blockService{})
	req := httptest.NewRequest(http.MethodPost, "/callbacks/bot/robot", bytes.NewBufferString(`{"text":{"content":"x"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after shutdown, got %d", rec.Code)
	}
	_, _ = io.Copy(io.Discard, rec.Body)
}

func TestContentTypeCaseInsensitive(t *testing.T) {
	h := NewMux(&mockService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callbacks/bot/robot", bytes.NewBufferString(`{"text":{"content":"hi"}}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with mixed-case content-type, got %d", rec.Code)
	}
}
