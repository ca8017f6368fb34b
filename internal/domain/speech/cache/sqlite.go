package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"magic-mirror-server/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds an audio cache on the audio_clips table.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db, ttl: defaultTTL(cfg.TTL)}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var clip storage.AudioClip
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&clip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry := Entry{
		Audio:       clip.Audio,
		ContentType: clip.ContentType,
		CreatedAt:   clip.CreatedAt,
		ExpiresAt:   clip.ExpiresAt,
	}
	if entry.expired(time.Now()) {
		_ = s.Delete(ctx, key)
		return Entry{}, false, nil
	}
	if len(clip.Meta) > 0 {
		var meta map[string]string
		if err := sonic.Unmarshal(clip.Meta, &meta); err == nil {
			entry.Meta = meta
		}
	}
	return entry, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, key string, entry Entry) error {
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ExpiresAt == nil {
		exp := entry.CreatedAt.Add(s.ttl)
		entry.ExpiresAt = &exp
	}
	var meta datatypes.JSON
	if len(entry.Meta) > 0 {
		raw, err := sonic.Marshal(entry.Meta)
		if err != nil {
			return err
		}
		meta = datatypes.JSON(raw)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cache_key = ?", key).Delete(&storage.AudioClip{}).Error; err != nil {
			return err
		}
		return tx.Create(&storage.AudioClip{
			CacheKey:    key,
			ContentType: entry.ContentType,
			Audio:       entry.Audio,
			Size:        len(entry.Audio),
			Meta:        meta,
			ExpiresAt:   entry.ExpiresAt,
			CreatedAt:   entry.CreatedAt,
		}).Error
	})
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&storage.AudioClip{}).Error
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&storage.AudioClip{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.AudioClip{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var size int64
	if err := s.db.WithContext(ctx).Model(&storage.AudioClip{}).Select("COALESCE(SUM(size), 0)").Scan(&size).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        DriverSQLite,
		"total":       total,
		"bytes":       size,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

// Close 数据库句柄由 storage 统一关闭
func (s *sqliteStore) Close(context.Context) error {
	return nil
}
