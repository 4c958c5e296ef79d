package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/sportsync/internal/config"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

func TestNew_MemoryWiring(t *testing.T) {
	cfg := config.Config{
		HTTPAddr:     ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		CacheEnabled: true,
	}

	a, err := New(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Router == nil {
		t.Fatal("expected router to be wired")
	}
	if a.Orchestrator == nil || a.Reconciliation == nil {
		t.Fatal("expected job services to be wired")
	}

	srv, err := a.HTTPServer()
	if err != nil {
		t.Fatalf("HTTPServer: %v", err)
	}
	if srv.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz returned %d", rec.Code)
	}
}

func TestNew_EmptyAddrFailsServerBuild(t *testing.T) {
	a, err := New(context.Background(), config.Config{CacheEnabled: true}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, err := a.HTTPServer(); err == nil {
		t.Fatal("expected error for empty addr")
	}
}
