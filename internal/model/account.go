package model

import (
	"time"
)

// Account 点数账户表
// 记录账户的可用点数余额，解锁容量时从这里扣点
// 余额是多个消费功能共享的资源，任何读到的值都不能跨调用缓存
type Account struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"uniqueIndex;not null" json:"account_id"` // 账户ID，身份系统传入
	Balance   int64     `gorm:"not null;default:0" json:"balance"`      // 可用点数余额
	Version   int       `gorm:"not null;default:0" json:"version"`      // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
