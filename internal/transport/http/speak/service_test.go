package speak

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"magic-mirror-server/internal/domain/speech"
	"magic-mirror-server/internal/domain/speech/cache"
	"magic-mirror-server/internal/platform/errors"
	platformtesting "magic-mirror-server/internal/platform/testing"
)

type fakeSynth struct {
	calls atomic.Int32
	data  []byte
	dur   time.Duration
	err   error
}

func (f *fakeSynth) Name() string  { return "fake" }
func (f *fakeSynth) Voice() string { return "rachel" }
func (f *fakeSynth) Model() string { return "m" }

func (f *fakeSynth) Synthesize(_ context.Context, text string) (*speech.Audio, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &speech.Audio{Data: f.data, ContentType: speech.ContentTypeMPEG, Provider: "fake", Voice: "rachel", Duration: f.dur}, nil
}

func newEngine(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	if err := svc.Register(context.Background(), engine.Group("/api")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	return engine
}

func post(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/speak", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	return w
}

func TestHandleSpeakSuccess(t *testing.T) {
	audio := bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x44}, 256)
	synth := &fakeSynth{data: audio, dur: 2300 * time.Millisecond}
	svc, err := NewService(synth, nil, platformtesting.SetupTestLogger(t))
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	w := post(newEngine(t, svc), `{"text":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cl := w.Header().Get("Content-Length"); cl != "1024" {
		t.Fatalf("Content-Length = %q", cl)
	}
	if !bytes.Equal(w.Body.Bytes(), audio) {
		t.Fatal("audio bytes not passed through")
	}
	if d := w.Header().Get(headerDuration); d != "2300" {
		t.Fatalf("%s = %q", headerDuration, d)
	}
}

func TestHandleSpeakErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
		wantCalls  int32
	}{
		{name: "text 为空", body: `{"text":""}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"No text provided"}`},
		{name: "缺少 text", body: `{}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"No text provided"}`},
		{name: "请求体损坏", body: `{"text":`, wantStatus: http.StatusInternalServerError, wantBody: `{"error":"Failed to convert text to speech"}`},
		{
			name:       "上游失败",
			body:       `{"text":"hello"}`,
			err:        errors.New(errors.KindUpstream, "speech.elevenlabs", "text-to-speech failed"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Failed to convert text to speech"}`,
			wantCalls:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &fakeSynth{data: []byte("x"), err: tt.err}
			svc, _ := NewService(synth, nil, platformtesting.SetupTestLogger(t))
			w := post(newEngine(t, svc), tt.body)
			if w.Code != tt.wantStatus || w.Body.String() != tt.wantBody {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
			if synth.calls.Load() != tt.wantCalls {
				t.Fatalf("synth calls = %d, want %d", synth.calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestHandleSpeakMissingKeyComesFirst(t *testing.T) {
	_, cause := speech.NewElevenLabs(speech.ElevenLabsOptions{}, platformtesting.SetupTestLogger(t))
	if cause == nil {
		t.Fatal("expected missing key error")
	}
	svc := NewUnavailableService(cause, platformtesting.SetupTestLogger(t))
	engine := newEngine(t, svc)

	for _, body := range []string{`{"text":"hello"}`, `{"text":""}`, `garbage`} {
		w := post(engine, body)
		if w.Code != http.StatusInternalServerError || w.Body.String() != `{"error":"Missing ELEVENLABS_API_KEY environment variable"}` {
			t.Fatalf("body %q: got %d %s", body, w.Code, w.Body.String())
		}
	}
}

func TestHandleSpeakCacheHit(t *testing.T) {
	store := cache.NewMemory(cache.Config{TTL: time.Minute})
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	inner := &fakeSynth{data: []byte("mp3-bytes")}
	cached := speech.NewCachedSynthesizer(inner, store, nil, platformtesting.SetupTestLogger(t))
	svc, _ := NewService(cached, nil, platformtesting.SetupTestLogger(t))
	engine := newEngine(t, svc)

	first := post(engine, `{"text":"hello"}`)
	second := post(engine, `{"text":"hello"}`)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses %d %d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatal("cache hit must return identical bytes")
	}
	if first.Header().Get("Content-Type") != second.Header().Get("Content-Type") ||
		first.Header().Get("Content-Length") != second.Header().Get("Content-Length") {
		t.Fatal("cache hit must return identical headers")
	}
	if second.Header().Get(headerCache) != "hit" || first.Header().Get(headerCache) != "" {
		t.Fatalf("unexpected cache header: %q %q", first.Header().Get(headerCache), second.Header().Get(headerCache))
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls.Load())
	}
}

// 使用真实的 ElevenLabs 合成器与桩上游
func TestHandleSpeakWithUpstream(t *testing.T) {
	payload := []byte("ID3-not-really-mp3")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-elevenlabs-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(payload)
	}))
	defer upstream.Close()

	cfg := platformtesting.SetupTestConfig(t)
	cfg.Speech.ElevenLabs.BaseURL = upstream.URL
	synth, err := speech.NewRegistry().Create(cfg.Speech, platformtesting.SetupTestLogger(t))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	svc, _ := NewService(synth, nil, platformtesting.SetupTestLogger(t))

	w := post(newEngine(t, svc), `{"text":"hello"}`)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), payload) {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Length") != "18" {
		t.Fatalf("Content-Length = %q", w.Header().Get("Content-Length"))
	}
}
