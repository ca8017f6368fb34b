package testing

import (
	"strings"
	"sync"
	"testing"

	"magic-mirror-server/internal/platform/config"
	"magic-mirror-server/internal/platform/logging"
)

// SetupTestConfig 返回带测试凭据的默认配置，日志写入临时目录
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "debug"
	cfg.Log.Dir = t.TempDir()
	cfg.Log.File = "test.log"
	cfg.Vision.APIKey = "test-openrouter-key"
	cfg.Speech.ElevenLabs.APIKey = "test-elevenlabs-key"
	return cfg
}

// SetupTestLogger 返回输出到 t.Log 的日志实例
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	w := &testWriter{t: t}
	t.Cleanup(func() {
		w.mu.Lock()
		w.done = true
		w.mu.Unlock()
	})
	return logging.NewWithWriter(w, "debug")
}

// testWriter 在测试结束后丢弃输出，避免后台协程调用 t.Log 触发 panic
type testWriter struct {
	t    *testing.T
	mu   sync.Mutex
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}
