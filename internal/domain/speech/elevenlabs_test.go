package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"magic-mirror-server/internal/platform/errors"
	platformtesting "magic-mirror-server/internal/platform/testing"
)

func elevenLabsOptions(baseURL string) ElevenLabsOptions {
	return ElevenLabsOptions{
		BaseURL:         baseURL,
		APIKey:          "xi-test",
		VoiceID:         "21m00Tcm4TlvDq8ikWAM",
		ModelID:         "eleven_multilingual_v2",
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Timeout:         2 * time.Second,
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	audioBytes := []byte("ID3\x04\x00fake-mp3-payload")
	var (
		gotPath    string
		gotHeaders http.Header
		gotBody    map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audioBytes)
	}))
	defer srv.Close()

	synth, err := NewElevenLabs(elevenLabsOptions(srv.URL), platformtesting.SetupTestLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabs() error: %v", err)
	}

	audio, err := synth.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if !bytes.Equal(audio.Data, audioBytes) {
		t.Fatalf("audio bytes not passed through: %q", audio.Data)
	}
	if audio.ContentType != ContentTypeMPEG || audio.Provider != ProviderElevenLabs {
		t.Fatalf("unexpected audio: %+v", audio)
	}

	if gotPath != "/v1/text-to-speech/21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotHeaders.Get("xi-api-key") != "xi-test" {
		t.Errorf("unexpected xi-api-key: %q", gotHeaders.Get("xi-api-key"))
	}
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type: %q", ct)
	}
	if gotBody["text"] != "hello" || gotBody["model_id"] != "eleven_multilingual_v2" {
		t.Errorf("unexpected body: %v", gotBody)
	}
	settings, _ := gotBody["voice_settings"].(map[string]any)
	if settings["stability"] != 0.5 || settings["similarity_boost"] != 0.75 {
		t.Errorf("unexpected voice settings: %v", settings)
	}
}

func TestElevenLabsFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "上游 500", status: http.StatusInternalServerError},
		{name: "上游 401", status: http.StatusUnauthorized},
		{name: "上游 429", status: http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"detail":"nope"}`)
			}))
			defer srv.Close()

			synth, err := NewElevenLabs(elevenLabsOptions(srv.URL), platformtesting.SetupTestLogger(t))
			if err != nil {
				t.Fatalf("NewElevenLabs() error: %v", err)
			}
			_, err = synth.Synthesize(context.Background(), "hello")
			if !errors.IsKind(err, errors.KindUpstream) {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Fatalf("expected exactly one upstream call, got %d", n)
			}
		})
	}
}

func TestElevenLabsMissingKey(t *testing.T) {
	opts := elevenLabsOptions("http://127.0.0.1:0")
	opts.APIKey = ""
	_, err := NewElevenLabs(opts, platformtesting.SetupTestLogger(t))
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if err.Error() == "" {
		t.Fatal("error message should not be empty")
	}
}

func TestElevenLabsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	opts := elevenLabsOptions(srv.URL)
	opts.Timeout = 50 * time.Millisecond
	synth, err := NewElevenLabs(opts, platformtesting.SetupTestLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabs() error: %v", err)
	}
	start := time.Now()
	_, err = synth.Synthesize(context.Background(), "hello")
	if !errors.IsKind(err, errors.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout not applied")
	}
}

func TestElevenLabsEmptyText(t *testing.T) {
	synth, err := NewElevenLabs(elevenLabsOptions("http://127.0.0.1:0"), platformtesting.SetupTestLogger(t))
	if err != nil {
		t.Fatalf("NewElevenLabs() error: %v", err)
	}
	if _, err := synth.Synthesize(context.Background(), ""); !errors.IsKind(err, errors.KindInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}
