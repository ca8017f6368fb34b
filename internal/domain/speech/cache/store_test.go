package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"magic-mirror-server/internal/platform/storage"
)

func openTestDB(t *testing.T) Dependencies {
	t.Helper()
	db, err := storage.Open(fmt.Sprintf("file:audio-cache-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return Dependencies{SQLiteDB: db}
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	deps := openTestDB(t)
	stores := map[string]Store{}
	for _, cfg := range []Config{
		{Driver: DriverMemory, TTL: time.Minute},
		{Driver: DriverRedis, TTL: time.Minute, Redis: &RedisConfig{Addr: mr.Addr()}},
		{Driver: DriverSQLite, TTL: time.Minute},
	} {
		store, err := New(cfg, deps)
		if err != nil {
			t.Fatalf("New(%s) error: %v", cfg.Driver, err)
		}
		t.Cleanup(func() { _ = store.Close(context.Background()) })
		stores[cfg.Driver] = store
	}
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for driver, store := range newStores(t) {
		t.Run(driver, func(t *testing.T) {
			key := Key("elevenlabs", "voice", "model", "hello "+driver)

			if _, ok, err := store.Get(ctx, key); err != nil || ok {
				t.Fatalf("expected miss, ok=%v err=%v", ok, err)
			}

			audio := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01}
			if err := store.Put(ctx, key, Entry{
				Audio:       audio,
				ContentType: "audio/mpeg",
				Meta:        map[string]string{"voice": "voice"},
			}); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			got, ok, err := store.Get(ctx, key)
			if err != nil || !ok {
				t.Fatalf("expected hit, ok=%v err=%v", ok, err)
			}
			if string(got.Audio) != string(audio) || got.ContentType != "audio/mpeg" {
				t.Fatalf("unexpected entry: %+v", got)
			}
			if got.Meta["voice"] != "voice" {
				t.Fatalf("meta lost: %v", got.Meta)
			}

			// 覆盖写入
			if err := store.Put(ctx, key, Entry{Audio: []byte("v2"), ContentType: "audio/mpeg"}); err != nil {
				t.Fatalf("overwrite error: %v", err)
			}
			got, _, _ = store.Get(ctx, key)
			if string(got.Audio) != "v2" {
				t.Fatalf("overwrite not applied: %q", got.Audio)
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats error: %v", err)
			}
			if stats["type"] != driver {
				t.Fatalf("unexpected stats: %v", stats)
			}

			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, ok, _ := store.Get(ctx, key); ok {
				t.Fatal("entry should be gone after delete")
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)

	for _, driver := range []string{DriverMemory, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			store, err := New(Config{Driver: driver, TTL: time.Minute}, openTestDB(t))
			if err != nil {
				t.Fatalf("New error: %v", err)
			}
			t.Cleanup(func() { _ = store.Close(ctx) })

			if err := store.Put(ctx, "old", Entry{Audio: []byte("x"), ContentType: "audio/mpeg", ExpiresAt: &past}); err != nil {
				t.Fatalf("Put error: %v", err)
			}
			if _, ok, _ := store.Get(ctx, "old"); ok {
				t.Fatal("expired entry should miss")
			}
			if err := store.CleanupExpired(ctx); err != nil {
				t.Fatalf("CleanupExpired error: %v", err)
			}
		})
	}
}

func TestMemoryStoreMaxEntries(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	past := base.Add(-time.Minute)

	tests := []struct {
		name    string
		seed    map[string]Entry
		wantGet map[string]bool
	}{
		{
			name: "淘汰最早写入",
			seed: map[string]Entry{
				"a": {Audio: []byte("a"), CreatedAt: base.Add(-2 * time.Second)},
				"b": {Audio: []byte("b"), CreatedAt: base.Add(-time.Second)},
			},
			wantGet: map[string]bool{"a": false, "b": true, "c": true},
		},
		{
			name: "优先清理过期项",
			seed: map[string]Entry{
				"a": {Audio: []byte("a"), CreatedAt: base.Add(-2 * time.Second)},
				"b": {Audio: []byte("b"), CreatedAt: base.Add(-time.Second), ExpiresAt: &past},
			},
			wantGet: map[string]bool{"a": true, "b": false, "c": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemory(Config{TTL: time.Minute, MaxEntries: 2})
			t.Cleanup(func() { _ = store.Close(ctx) })
			for key, entry := range tt.seed {
				if err := store.Put(ctx, key, entry); err != nil {
					t.Fatalf("Put(%s) error: %v", key, err)
				}
			}
			if err := store.Put(ctx, "c", Entry{Audio: []byte("c")}); err != nil {
				t.Fatalf("Put(c) error: %v", err)
			}
			for key, want := range tt.wantGet {
				if _, ok, _ := store.Get(ctx, key); ok != want {
					t.Fatalf("Get(%s) hit=%v, want %v", key, ok, want)
				}
			}
			stats, _ := store.Stats(ctx)
			if stats["total"] != 2 || stats["max_entries"] != 2 {
				t.Fatalf("unexpected stats: %v", stats)
			}
		})
	}

	// 覆盖已有 key 不触发淘汰
	store := NewMemory(Config{TTL: time.Minute, MaxEntries: 1})
	t.Cleanup(func() { _ = store.Close(ctx) })
	_ = store.Put(ctx, "a", Entry{Audio: []byte("1")})
	_ = store.Put(ctx, "a", Entry{Audio: []byte("2")})
	if got, ok, _ := store.Get(ctx, "a"); !ok || string(got.Audio) != "2" {
		t.Fatalf("overwrite at capacity failed: ok=%v %q", ok, got.Audio)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{TTL: time.Second, Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:"}})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })

	if err := store.Put(ctx, "k", Entry{Audio: []byte("x"), ContentType: "audio/mpeg"}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if !mr.Exists("test:k") {
		t.Fatal("key should be prefixed")
	}
	mr.FastForward(2 * time.Second)
	if _, ok, err := store.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss after ttl, ok=%v err=%v", ok, err)
	}

	if err := mr.Set("test:broken", "{not json"); err != nil {
		t.Fatalf("seed broken value: %v", err)
	}
	if _, ok, err := store.Get(ctx, "broken"); ok || err == nil {
		t.Fatalf("broken entry should error, ok=%v err=%v", ok, err)
	}
	if mr.Exists("test:broken") {
		t.Fatal("broken entry should be dropped")
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		deps Dependencies
	}{
		{name: "未知驱动", cfg: Config{Driver: "memcached"}},
		{name: "sqlite 缺少句柄", cfg: Config{Driver: DriverSQLite}},
		{name: "redis 缺少配置", cfg: Config{Driver: DriverRedis}},
		{name: "redis 缺少地址", cfg: Config{Driver: DriverRedis, Redis: &RedisConfig{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.deps); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key("elevenlabs", "v", "m", "hello")
	if a != Key("elevenlabs", "v", "m", "hello") {
		t.Fatal("key should be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected key length %d", len(a))
	}
	if a == Key("edge", "v", "m", "hello") || a == Key("elevenlabs", "v", "m", "hello!") {
		t.Fatal("key should depend on provider and text")
	}
}
