package system

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"magic-mirror-server/internal/domain/speech/cache"
	platformtesting "magic-mirror-server/internal/platform/testing"
)

type fixedStats map[string]any

func (f fixedStats) Snapshot() map[string]any { return f }

type brokenCache struct{}

func (brokenCache) Stats(context.Context) (map[string]any, error) {
	return nil, stderrors.New("redis down")
}

func newEngine(t *testing.T, opts Options) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opts.Logger = platformtesting.SetupTestLogger(t)
	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	engine := gin.New()
	if err := svc.Register(context.Background(), &engine.RouterGroup); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	return engine, svc
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	store := cache.NewMemory(cache.Config{TTL: time.Minute})
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	tests := []struct {
		name       string
		modules    map[string]bool
		cache      CacheStats
		wantStatus string
		wantCache  string
	}{
		{name: "全部可用", modules: map[string]bool{"analyze": true, "speak": true}, cache: store, wantStatus: "ok", wantCache: "type"},
		{name: "缺少凭据", modules: map[string]bool{"analyze": false, "speak": true}, wantStatus: "degraded"},
		{name: "缓存统计失败", modules: map[string]bool{"analyze": true}, cache: brokenCache{}, wantStatus: "ok", wantCache: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules := tt.modules
			engine, svc := newEngine(t, Options{
				Version: "1.2.3",
				Modules: func() map[string]bool { return modules },
				Events:  fixedStats{"vision_completed": 3},
				Cache:   tt.cache,
			})
			svc.started = time.Now().Add(-90 * time.Second)

			w := get(engine, "/api/health")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Version != "1.2.3" {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if resp.UptimeSeconds < 90 {
				t.Fatalf("uptime = %d", resp.UptimeSeconds)
			}
			if resp.Process.PID == 0 || resp.Process.Goroutines == 0 {
				t.Fatalf("process info missing: %+v", resp.Process)
			}
			if len(resp.Modules) != len(tt.modules) {
				t.Fatalf("modules = %v", resp.Modules)
			}
			if resp.Events["vision_completed"] != float64(3) {
				t.Fatalf("events = %v", resp.Events)
			}
			if tt.wantCache == "" && resp.Cache != nil {
				t.Fatalf("cache stats should be omitted: %v", resp.Cache)
			}
			if tt.wantCache != "" {
				if _, ok := resp.Cache[tt.wantCache]; !ok {
					t.Fatalf("cache stats missing %q: %v", tt.wantCache, resp.Cache)
				}
			}
		})
	}
}

func TestDocs(t *testing.T) {
	engine, _ := newEngine(t, Options{})

	w := get(engine, "/openapi.json")
	if w.Code != http.StatusOK {
		t.Fatalf("openapi status = %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{"/analyze", "/speak", "/health"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("openapi missing path %s", p)
		}
	}

	w = get(engine, "/docs")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `data-url="/openapi.json"`) {
		t.Fatalf("docs page: %d %s", w.Code, w.Body.String())
	}
}
