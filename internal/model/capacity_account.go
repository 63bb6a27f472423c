package model

import (
	"time"
)

const (
	AccountKindUser    = "USER"
	AccountKindPartner = "PARTNER"
)

// ValidAccountKind 校验账户类型
func ValidAccountKind(kind string) bool {
	return kind == AccountKindUser || kind == AccountKindPartner
}

// CapacityAccount 容量账户表
// 记录一个账户当前可同时预订/上架的格位数，是整个解锁功能的核心数据
//
// 【重要】状态机约束：
// 1. current_max 只增不减，不存在降级操作
// 2. current_max 达到上限后为终态，不再有出边
// 3. 升级只能通过解锁事务完成，且必须与扣点在同一个数据库事务里
type CapacityAccount struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  int64     `gorm:"uniqueIndex:uk_account_kind;not null" json:"account_id"`       // 账户ID，身份系统传入
	Kind       string    `gorm:"type:varchar(16);uniqueIndex:uk_account_kind;not null" json:"kind"` // 账户类型 USER / PARTNER
	CurrentMax int       `gorm:"not null" json:"current_max"`                                  // 当前容量（单次可预订/上架的格位数）
	TotalSpent int64     `gorm:"not null;default:0" json:"total_spent"`                        // 历史累计解锁花费（单调不减）
	Version    int       `gorm:"not null;default:0" json:"version"`                            // 乐观锁版本号
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CapacityAccount) TableName() string {
	return "capacity_account"
}
