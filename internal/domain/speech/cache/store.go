package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Driver identifiers supported by the audio cache.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Entry 一段已合成的音频
type Entry struct {
	Audio       []byte            `json:"audio"`
	ContentType string            `json:"content_type"`
	Meta        map[string]string `json:"meta,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

func (e Entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Store 按 key 存取合成结果。未命中时返回 ok=false 且 err=nil。
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

type Config struct {
	Driver     string
	TTL        time.Duration
	GCInterval time.Duration
	// MaxEntries 仅作用于 memory 驱动，<=0 时使用默认值
	MaxEntries int
	Redis      *RedisConfig
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New creates an audio cache store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverRedis:
		return NewRedis(cfg)
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	default:
		return nil, fmt.Errorf("unsupported audio cache driver: %s", driver)
	}
}

// Key 由提供者、音色、模型与文本派生缓存键
func Key(provider, voice, model, text string) string {
	sum := sha256.Sum256([]byte(provider + "|" + voice + "|" + model + "|" + text))
	return hex.EncodeToString(sum[:])
}

func defaultMaxEntries(n int) int {
	if n <= 0 {
		return 512
	}
	return n
}

func defaultTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 6 * time.Hour
	}
	return ttl
}
