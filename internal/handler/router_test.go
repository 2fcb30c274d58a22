package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/freeindiatools/freetools/internal/metrics"
	"github.com/freeindiatools/freetools/internal/middleware"
	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/session"
	"github.com/freeindiatools/freetools/internal/validation"
)

// fakeSessionSource はmiddleware.SessionSourceのテスト用実装。
type fakeSessionSource struct {
	current *session.Session
	loading bool
}

func (f *fakeSessionSource) Current() *session.Session { return f.current }
func (f *fakeSessionSource) Loading() bool             { return f.loading }

func adminSession() *session.Session {
	return &session.Session{
		Identity:    model.Identity{UID: "admin-1", Email: "admin@freeindiatools.com"},
		DisplayName: "Admin",
		Role:        model.RoleAdmin,
		IsAdmin:     true,
	}
}

func userSession() *session.Session {
	return &session.Session{
		Identity:    model.Identity{UID: "user-123", Email: "asha@example.com"},
		DisplayName: "Asha Verma",
		Role:        model.RoleUser,
	}
}

func newTestRouter(t *testing.T, source *fakeSessionSource) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()

	svc := &mockToolService{
		submitFn: func(ctx context.Context, userID string, sub validation.ToolSubmission) (*model.Tool, error) {
			out := sampleTool()
			out.Status = model.ToolStatusPending
			return out, nil
		},
	}

	return NewRouter(&RouterDeps{
		Sessions:          source,
		CORSAllowedOrigin: "http://localhost:5173",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionManager:    &mockSessionManager{},
		LoginURL:          &mockLoginURLProvider{},
		AuthConfig:        AuthHandlerConfig{BaseURL: "http://localhost:5173"},
		ToolService:       svc,
		Metrics:           metrics.NewCollector(reg),
		Gatherer:          reg,
	})
}

func TestRouter_PublicRoutesWithoutSession(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/api/tools"},
		{http.MethodGet, "/api/categories"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, http.StatusOK)
		}
	}
}

func TestRouter_AuthenticatedRouteRequiresSession(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{})

	body := []byte(`{"name":"Canva"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tools", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_AuthenticatedRouteWhileLoading(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{loading: true})

	req := httptest.NewRequest(http.MethodGet, "/api/me/favorites", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_SubmitToolWithSession(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{current: userSession()})

	// ボディの検証はサービス層の責務なのでモックはそのまま成功を返す
	body := []byte(`{"name":"Canva","description":"A free design tool.","url":"https://canva.com","category":"design"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tools", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: body = %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestRouter_AdminRouteForbiddenForUser(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{current: userSession()})

	body := []byte(`{"status":"approved"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/tools/tool-id-1/status", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRouter_AdminRouteAllowedForAdmin(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{current: adminSession()})

	body := []byte(`{"status":"approved"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/tools/tool-id-1/status", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: body = %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestRouter_AdminToolQueueRequiresAdmin(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{current: userSession()})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/tools?status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRouter_AdminToolQueueForAdmin(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{current: adminSession()})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/tools?status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: body = %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestRouter_CORSPreflighted(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{})

	req := httptest.NewRequest(http.MethodOptions, "/api/tools", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:5173")
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &fakeSessionSource{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}

func TestRouter_MetricsEndpointExposesCounters(t *testing.T) {
	source := &fakeSessionSource{current: userSession()}
	router := newTestRouter(t, source)

	// カウンターを進めるために1リクエスト流す
	req := httptest.NewRequest(http.MethodGet, "/api/me/favorites", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "freetools_http_status_total") {
		t.Error("metrics output does not contain freetools_http_status_total")
	}
}
