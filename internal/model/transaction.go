package model

import (
	"time"
)

const (
	TransactionTypeGrant  = "GRANT"  // 发放点数
	TransactionTypeUnlock = "UNLOCK" // 解锁容量（扣点）
)

// PointTransaction 点数流水表
// 记录账户的每一笔点数变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 扣点流水必须关联解锁单号 —— 便于对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
type PointTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	AccountID     int64     `gorm:"index;not null" json:"account_id"`
	RefNo         string    `gorm:"type:varchar(64);index" json:"ref_no"`  // 关联单号（解锁单号/发放单号）
	Amount        int64     `gorm:"not null" json:"amount"`                // 点数（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"` // 交易类型
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`        // 交易前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`         // 交易后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`       // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PointTransaction) TableName() string {
	return "point_transaction"
}
