package model

import (
	"time"
)

// UnlockRecord 容量解锁记录表
// 每成功解锁一格追加一行，用于审计和前端展示
//
// 【重要】只追加，不修改，不删除
// total_spent 可以由价格表重算出来，这张表不是独立的真相来源
type UnlockRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UnlockNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"unlock_no"` // 解锁单号（全局唯一）
	AccountID    int64     `gorm:"index:idx_account_kind;not null" json:"account_id"`
	Kind         string    `gorm:"type:varchar(16);index:idx_account_kind;not null" json:"kind"`
	TierUnlocked int       `gorm:"not null" json:"tier_unlocked"` // 本次解锁后达到的容量值
	CostPaid     int64     `gorm:"not null" json:"cost_paid"`     // 本次扣除的点数
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (UnlockRecord) TableName() string {
	return "unlock_record"
}
