package main

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/platform/middleware"
	"github.com/medvault/medvault/internal/platform/notification"
	"github.com/medvault/medvault/internal/platform/tokenstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8000",
		Env:               "test",
		CORSOrigins:       []string{"http://localhost:3000"},
		RateLimitRPS:      100,
		RateLimitBurst:    200,
		ResetTokenTTL:     30 * time.Minute,
		UsernameMaxProbes: 10,
		BcryptCost:        4,
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "status"},
		{"admin", "create"},
		{"admin", "reset-password"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("expected subcommand %v, got %v (%v)", path, cmd, err)
		}
	}
}

func TestAdminCreate_RequiredFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"admin", "create", "--email", "root@medvault.io"})
	root.SetOut(new(strings.Builder))
	root.SetErr(new(strings.Builder))
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "first-name") {
		t.Errorf("expected missing flag error, got %v", err)
	}
}

func TestMigrationsFS(t *testing.T) {
	for _, name := range []string{"001_onboarding.sql", "002_medical_records.sql", "003_appointments.sql"} {
		if _, err := fs.Stat(migrationsFS(""), name); err != nil {
			t.Errorf("expected embedded migration %s: %v", name, err)
		}
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "010_extra.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Stat(migrationsFS(dir), "010_extra.sql"); err != nil {
		t.Errorf("expected migration from directory: %v", err)
	}
}

func TestNewEmailSender(t *testing.T) {
	cfg := testConfig()
	if _, ok := newEmailSender(cfg, zerolog.Nop()).(*notification.LogSender); !ok {
		t.Error("expected log sender without SMTP_HOST")
	}
	cfg.SMTPHost = "smtp.example.com"
	if _, ok := newEmailSender(cfg, zerolog.Nop()).(*notification.SMTPSender); !ok {
		t.Error("expected SMTP sender with SMTP_HOST")
	}
}

func TestNewTokenStore_Memory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeFn, err := newTokenStore(ctx, testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*tokenstore.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", store)
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	e, err := newServer(testConfig(), zerolog.Nop(), nil, tokenstore.NewMemoryStore(), &notification.MockEmailSender{})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e
}

func TestNewServer_Routes(t *testing.T) {
	e, err := newServer(testConfig(), zerolog.Nop(), nil, tokenstore.NewMemoryStore(), &notification.MockEmailSender{})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /health/db",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/first-login-password",
		"POST /api/v1/auth/password-reset/request",
		"POST /api/v1/auth/password-reset",
		"POST /api/v1/admin/register",
		"POST /api/v1/admin/reset-password",
		"GET /api/v1/accounts/:id",
		"POST /api/v1/registration/requests",
		"GET /api/v1/registration/requests",
		"GET /api/v1/registration/stats",
		"POST /api/v1/registration/requests/:id/approve",
		"POST /api/v1/registration/requests/:id/reject",
		"POST /api/v1/registration/accounts",
		"GET /api/v1/doctors/:id",
		"GET /api/v1/patients/:id",
		"POST /api/v1/patients/:id/records",
		"GET /api/v1/records/:id",
		"POST /api/v1/appointments",
		"GET /api/v1/appointments",
		"GET /api/v1/appointments/:id",
		"DELETE /api/v1/appointments/:id",
	} {
		if !registered[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}

func TestNewServer_Health(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestNewServer_LoginValidation(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"janedoe"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewServer_BadBcryptCost(t *testing.T) {
	cfg := testConfig()
	cfg.BcryptCost = 99
	if _, err := newServer(cfg, zerolog.Nop(), nil, tokenstore.NewMemoryStore(), &notification.MockEmailSender{}); err == nil {
		t.Error("expected error for out-of-range bcrypt cost")
	}
}
