package storage

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"magic-mirror-server/internal/platform/errors"
)

// AudioClip 语音合成结果的持久化缓存记录
type AudioClip struct {
	ID          uint           `gorm:"primaryKey"`
	CacheKey    string         `gorm:"uniqueIndex;size:64;not null"`
	ContentType string         `gorm:"size:64;not null"`
	Audio       []byte         `gorm:"not null"`
	Size        int            `gorm:"not null"`
	Meta        datatypes.JSON `gorm:"type:json"`
	ExpiresAt   *time.Time     `gorm:"index"`
	CreatedAt   time.Time
}

// TableName 指定表名
func (AudioClip) TableName() string {
	return "audio_clips"
}

// Open 打开 SQLite 数据库并执行所有迁移
func Open(dsn string) (*gorm.DB, error) {
	return openWith(dsn, Migrations())
}

// openWith 迁移失败时关闭已打开的连接
func openWith(dsn string, migrations []Migration) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New(errors.KindStorage, "storage.open", "sqlite dsn is empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open sqlite", err)
	}

	manager := NewMigrationManager(db)
	for _, m := range migrations {
		manager.AddMigration(m)
	}
	if err := manager.RunMigrations(); err != nil {
		_ = Close(db)
		return nil, err
	}
	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.close", "failed to get sql handle", err)
	}
	return sqlDB.Close()
}
