package repository

import (
	"context"
	"path/filepath"
	"testing"

	"slotsystem/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "repo_test.db") + "?_busy_timeout=5000"
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

func TestAccountGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	account, err := repo.GetOrCreate(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.AccountID)
	assert.Equal(t, int64(0), account.Balance)

	// 再次调用返回同一条
	again, err := repo.GetOrCreate(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
}

func TestAccountDebitClassification(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	account, err := repo.GetOrCreate(ctx, 200)
	require.NoError(t, err)
	require.NoError(t, repo.Increase(ctx, nil, 200, 150))

	account, err = repo.GetByAccountID(ctx, 200)
	require.NoError(t, err)

	// 余额不够：条件 UPDATE 不命中，回查归类为余额不足
	err = repo.Debit(ctx, nil, 200, 500, account.Version)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	// 余额够但版本号过期：归类为乐观锁冲突
	err = repo.Debit(ctx, nil, 200, 100, account.Version-1)
	assert.ErrorIs(t, err, ErrOptimisticLock)

	// 正常扣点
	err = repo.Debit(ctx, nil, 200, 100, account.Version)
	require.NoError(t, err)

	account, err = repo.GetByAccountID(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.Balance)
}

func TestCapacityGetOrCreateProvisionsDefault(t *testing.T) {
	db := newTestDB(t)
	repo := NewCapacityRepository(db)
	ctx := context.Background()

	acc, err := repo.GetOrCreate(ctx, 300, model.AccountKindPartner, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, acc.CurrentMax)
	assert.Equal(t, int64(0), acc.TotalSpent)

	// 同一账户的 USER 与 PARTNER 容量相互独立
	userAcc, err := repo.GetOrCreate(ctx, 300, model.AccountKindUser, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, userAcc.CurrentMax)
	assert.NotEqual(t, acc.ID, userAcc.ID)
}

func TestCapacityUpgradeTier(t *testing.T) {
	db := newTestDB(t)
	repo := NewCapacityRepository(db)
	ctx := context.Background()

	acc, err := repo.GetOrCreate(ctx, 400, model.AccountKindPartner, 9)
	require.NoError(t, err)

	err = repo.UpgradeTier(ctx, nil, 400, model.AccountKindPartner, acc.CurrentMax, 100, acc.Version, 13)
	require.NoError(t, err)

	acc, err = repo.GetByAccountID(ctx, 400, model.AccountKindPartner)
	require.NoError(t, err)
	assert.Equal(t, 10, acc.CurrentMax)
	assert.Equal(t, int64(100), acc.TotalSpent)

	// 过期版本号：冲突
	err = repo.UpgradeTier(ctx, nil, 400, model.AccountKindPartner, acc.CurrentMax, 200, acc.Version-1, 13)
	assert.ErrorIs(t, err, ErrOptimisticLock)

	// 已达上限：终态拒绝
	require.NoError(t, db.Model(&model.CapacityAccount{}).
		Where("account_id = ? AND kind = ?", 400, model.AccountKindPartner).
		Updates(map[string]interface{}{"current_max": 13, "version": gorm.Expr("version + 1")}).Error)

	acc, err = repo.GetByAccountID(ctx, 400, model.AccountKindPartner)
	require.NoError(t, err)
	err = repo.UpgradeTier(ctx, nil, 400, model.AccountKindPartner, acc.CurrentMax, 400, acc.Version, 13)
	assert.ErrorIs(t, err, ErrCeilingReached)
}

func TestCapacityList(t *testing.T) {
	db := newTestDB(t)
	repo := NewCapacityRepository(db)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_, err := repo.GetOrCreate(ctx, i, model.AccountKindUser, 1)
		require.NoError(t, err)
	}

	first, err := repo.List(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := repo.List(ctx, first[2].ID, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
