package repository

import (
	"context"

	"slotsystem/internal/model"

	"gorm.io/gorm"
)

type UnlockRecordRepository struct {
	db *gorm.DB
}

func NewUnlockRecordRepository(db *gorm.DB) *UnlockRecordRepository {
	return &UnlockRecordRepository{db: db}
}

// Create 追加一条解锁记录，只在解锁事务内调用
func (r *UnlockRecordRepository) Create(ctx context.Context, tx *gorm.DB, record *model.UnlockRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *UnlockRecordRepository) GetByUnlockNo(ctx context.Context, unlockNo string) (*model.UnlockRecord, error) {
	var record model.UnlockRecord
	err := r.db.WithContext(ctx).Where("unlock_no = ?", unlockNo).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *UnlockRecordRepository) ListByAccountID(ctx context.Context, accountID int64, kind string, page, pageSize int) ([]*model.UnlockRecord, int64, error) {
	var records []*model.UnlockRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.UnlockRecord{}).
		Where("account_id = ? AND kind = ?", accountID, kind)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("tier_unlocked ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}
