package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/favkeeper/internal/auth"
	"github.com/atinyakov/favkeeper/internal/middleware"
	"github.com/atinyakov/favkeeper/internal/models"
	"github.com/atinyakov/favkeeper/internal/repository"
	"github.com/atinyakov/favkeeper/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type memoryProvider struct {
	repo *repository.MemoryUserRepository
}

func (p memoryProvider) Get(ctx context.Context) (service.UserRepository, error) {
	return p.repo, nil
}

func newTestRouter(opts RouterOptions) http.Handler {
	provider := memoryProvider{repo: repository.NewMemoryUserRepository()}
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)
	log := zap.NewNop()
	return NewRouter(
		&AuthHandler{AuthService: service.NewAuthService(provider, log), Tokens: issuer, Log: log},
		&CollectionHandler{Collections: service.NewCollectionService(provider, log), Log: log},
		issuer,
		log,
		opts,
	)
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_EndToEnd(t *testing.T) {
	h := newTestRouter(RouterOptions{AuthRate: 100, AuthBurst: 100})

	rec := do(t, h, http.MethodPost, "/api/user/register", "", `{"userName":"alice","password":"pw1","password2":"pw1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/user/register", "", `{"userName":"alice","password":"x","password2":"x"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/user/login", "", `{"userName":"alice","password":"pw1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var login map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	token := login["token"]
	if token == "" {
		t.Fatal("expected token in login response")
	}

	steps := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/user/favourites", `[]`},
		{http.MethodPut, "/api/user/favourites/item42", `["item42"]`},
		{http.MethodPut, "/api/user/favourites/item42", `["item42"]`},
		{http.MethodGet, "/api/user/history", `[]`},
		{http.MethodPut, "/api/user/history/seen1", `["seen1"]`},
		{http.MethodDelete, "/api/user/favourites/item42", `[]`},
		{http.MethodDelete, "/api/user/favourites/missing", `[]`},
		{http.MethodGet, "/api/user/favourites", `[]`},
		{http.MethodGet, "/api/user/history", `["seen1"]`},
	}
	for _, s := range steps {
		rec := do(t, h, s.method, s.path, token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d: %s", s.method, s.path, rec.Code, rec.Body)
		}
		if got := rec.Body.String(); got != s.want+"\n" {
			t.Errorf("%s %s: expected %s, got %s", s.method, s.path, s.want, got)
		}
	}
}

func TestRouter_FavouritesCap(t *testing.T) {
	h := newTestRouter(RouterOptions{AuthRate: 100, AuthBurst: 100})
	do(t, h, http.MethodPost, "/api/user/register", "", `{"userName":"bob","password":"pw","password2":"pw"}`)
	rec := do(t, h, http.MethodPost, "/api/user/login", "", `{"userName":"bob","password":"pw"}`)
	var login map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	for i := 0; i < models.MaxCollectionSize; i++ {
		rec := do(t, h, http.MethodPut, fmt.Sprintf("/api/user/favourites/i%d", i), login["token"], "")
		if rec.Code != http.StatusOK {
			t.Fatalf("add %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec = do(t, h, http.MethodPut, "/api/user/favourites/overflow", login["token"], "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on full collection, got %d", rec.Code)
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	h := newTestRouter(DefaultRouterOptions())

	for _, path := range []string{"/api/user/favourites", "/api/user/history"} {
		rec := do(t, h, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, rec.Code)
		}
		rec = do(t, h, http.MethodGet, path, "forged.token.value", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	h := newTestRouter(DefaultRouterOptions())

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewBufferString("userName=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(DefaultRouterOptions())

	req := httptest.NewRequest(http.MethodOptions, "/api/user/favourites/item42", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow-origin *, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPut {
		t.Errorf("expected allow-methods PUT, got %q", got)
	}
}

func TestRouter_RateLimitsLogin(t *testing.T) {
	h := newTestRouter(RouterOptions{AuthRate: 0.001, AuthBurst: 2})

	body := `{"userName":"nobody","password":"pw"}`
	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodPost, "/api/user/login", "", body); rec.Code != http.StatusNotFound {
			t.Fatalf("attempt %d: expected 404, got %d", i, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodPost, "/api/user/login", "", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", rec.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := DefaultRouterOptions()
	opts.Metrics = middleware.NewMetrics(reg)
	opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	h := newTestRouter(opts)

	do(t, h, http.MethodGet, "/api/user/favourites", "", "")

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	want := `favkeeper_http_requests_total{code="401",method="GET",route="/api/user/favourites"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("expected %q in metrics output", want)
	}
}
