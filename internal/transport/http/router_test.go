package httptransport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	platformtesting "magic-mirror-server/internal/platform/testing"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (string, error) {
	if token == "good" {
		return "kiosk-1", nil
	}
	return "", errors.New("bad token")
}

func buildTestRouter(t *testing.T, withAuth bool) *Router {
	t.Helper()
	cfg := platformtesting.SetupTestConfig(t)
	cfg.Web.StaticDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.Web.StaticDir, "index.html"), []byte("<html>mirror</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	opts := Options{Config: cfg, Logger: platformtesting.SetupTestLogger(t)}
	if withAuth {
		opts.AuthMiddleware = AuthMiddleware(stubVerifier{}, opts.Logger)
	}
	router, err := Build(opts)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	router.Secured.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ClientID(c)+"|"+RequestID(c))
	})
	return router
}

func TestRequestIDPropagation(t *testing.T) {
	router := buildTestRouter(t, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set(RequestIDHeader, "rid-123")
	router.Engine.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "rid-123" || w.Body.String() != "|rid-123" {
		t.Fatalf("request id not propagated: %q %q", w.Header().Get(RequestIDHeader), w.Body.String())
	}

	w = httptest.NewRecorder()
	router.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/whoami", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Header().Get(RequestIDHeader))
	}
}

func TestNoRoute(t *testing.T) {
	router := buildTestRouter(t, false)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "未知 API", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound, wantBody: `{"error":"Not found"}`},
		{name: "首页", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "mirror"},
		{name: "前端路由回落", method: http.MethodGet, path: "/some/page", wantStatus: http.StatusOK, wantBody: "mirror"},
		{name: "非 GET", method: http.MethodPost, path: "/some/page", wantStatus: http.StatusNotFound, wantBody: `{"error":"Not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.Engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus || !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("got %d %q", w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := buildTestRouter(t, true)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "缺少 token", header: "", wantStatus: http.StatusUnauthorized},
		{name: "格式错误", header: "Token good", wantStatus: http.StatusUnauthorized},
		{name: "无效 token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "有效 token", header: "Bearer good", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.Engine.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized && w.Body.String() != `{"error":"Unauthorized"}` {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && !strings.HasPrefix(w.Body.String(), "kiosk-1|") {
				t.Fatalf("client id not set: %s", w.Body.String())
			}
		})
	}
}
