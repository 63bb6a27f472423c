package repository

import (
	"context"
	"errors"

	"slotsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound    = errors.New("账户不存在")
	ErrInsufficientPoints = errors.New("点数余额不足")
	ErrOptimisticLock     = errors.New("乐观锁冲突，请重试")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByAccountID(ctx context.Context, accountID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Debit 条件扣点
// 单条 UPDATE 同时校验余额充足和版本号，失败时回查区分余额不足与并发冲突
func (r *AccountRepository) Debit(ctx context.Context, tx *gorm.DB, accountID int64, amount int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ? AND balance >= ? AND version = ?", accountID, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.GetByAccountID(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return ErrInsufficientPoints
		}
		return ErrOptimisticLock
	}

	return nil
}

// Increase 入账（发放点数）
func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, accountID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// GetOrCreate 查询账户，不存在则以零余额创建
// 并发下依赖唯一索引 + OnConflict DoNothing 保证只建一条
func (r *AccountRepository) GetOrCreate(ctx context.Context, accountID int64) (*model.Account, error) {
	account, err := r.GetByAccountID(ctx, accountID)
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	newAccount := &model.Account{
		AccountID: accountID,
		Balance:   0,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error

	if err != nil {
		return nil, err
	}

	return r.GetByAccountID(ctx, accountID)
}
