package repository

import (
	"context"
	"errors"

	"slotsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCapacityNotFound = errors.New("容量账户不存在")
	ErrCeilingReached   = errors.New("已达容量上限")
)

type CapacityRepository struct {
	db *gorm.DB
}

func NewCapacityRepository(db *gorm.DB) *CapacityRepository {
	return &CapacityRepository{db: db}
}

func (r *CapacityRepository) GetByAccountID(ctx context.Context, accountID int64, kind string) (*model.CapacityAccount, error) {
	var acc model.CapacityAccount
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND kind = ?", accountID, kind).
		First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCapacityNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// GetOrCreate 查询容量账户，不存在则按该类型的初始容量隐式开户
func (r *CapacityRepository) GetOrCreate(ctx context.Context, accountID int64, kind string, defaultMax int) (*model.CapacityAccount, error) {
	acc, err := r.GetByAccountID(ctx, accountID, kind)
	if err == nil {
		return acc, nil
	}

	if !errors.Is(err, ErrCapacityNotFound) {
		return nil, err
	}

	newAcc := &model.CapacityAccount{
		AccountID:  accountID,
		Kind:       kind,
		CurrentMax: defaultMax,
		TotalSpent: 0,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(newAcc).Error

	if err != nil {
		return nil, err
	}

	return r.GetByAccountID(ctx, accountID, kind)
}

// UpgradeTier 条件升级一格容量
// 单条 UPDATE 同时校验当前容量、上限和版本号，把"只增不减、封顶即终态"
// 的状态机约束压到数据库层面强制执行
func (r *CapacityRepository) UpgradeTier(ctx context.Context, tx *gorm.DB, accountID int64, kind string, fromMax int, cost int64, version int, ceiling int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.CapacityAccount{}).
		Where("account_id = ? AND kind = ? AND current_max = ? AND current_max < ? AND version = ?",
			accountID, kind, fromMax, ceiling, version).
		Updates(map[string]interface{}{
			"current_max": gorm.Expr("current_max + 1"),
			"total_spent": gorm.Expr("total_spent + ?", cost),
			"version":     gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		acc, err := r.GetByAccountID(ctx, accountID, kind)
		if err != nil {
			return err
		}
		if acc.CurrentMax >= ceiling {
			return ErrCeilingReached
		}
		return ErrOptimisticLock
	}

	return nil
}

// List 分页扫描容量账户，供对账任务使用
func (r *CapacityRepository) List(ctx context.Context, lastID int64, limit int) ([]*model.CapacityAccount, error) {
	var accounts []*model.CapacityAccount
	err := r.db.WithContext(ctx).
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
