package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/searelay/searelay/internal/relay"
)

type fakeSource struct {
	stats relay.Stats
}

func (f fakeSource) Snapshot() relay.Stats { return f.stats }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStatusHandler(t *testing.T) {
	e := echo.New()
	h := NewStatusHandler(testLogger(), fakeSource{stats: relay.Stats{Processed: 3, Failed: 1}})
	h.Register(e)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Relay.Processed != 3 || body.Relay.Failed != 1 {
		t.Fatalf("relay stats = %+v", body.Relay)
	}
	if body.Version == "" {
		t.Fatal("version missing")
	}
}

func TestPingHandler(t *testing.T) {
	e := echo.New()
	NewPingHandler(testLogger()).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "searelay" {
		t.Fatalf("body = %v", body)
	}
}
