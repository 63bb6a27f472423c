package service

import (
	"path/filepath"
	"testing"

	"slotsystem/internal/config"
	"slotsystem/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试独立的文件型 sqlite，busy_timeout 兜住并发写等待
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "service_test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.CapacityAccount{},
		&model.UnlockRecord{},
		&model.PointTransaction{},
		&model.OutboxMessage{},
	))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			UnlockMaxRetries: 3,
			MaxRetryCount:    3,
		},
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				CapacityUnlocked: "capacity-unlocked",
				PointsGranted:    "points-granted",
			},
		},
	}
}
