package service

import (
	"context"

	"slotsystem/internal/model"
	"slotsystem/internal/pricing"
	"slotsystem/internal/repository"

	"gorm.io/gorm"
)

// CapacityService 容量账本的读侧入口
// 回答"这个账户现在能同时预订/上架几格、再升一格要多少点"
type CapacityService struct {
	db               *gorm.DB
	schedule         *pricing.Schedule
	capacityRepo     *repository.CapacityRepository
	accountRepo      *repository.AccountRepository
	unlockRecordRepo *repository.UnlockRecordRepository
}

func NewCapacityService(db *gorm.DB, schedule *pricing.Schedule) *CapacityService {
	return &CapacityService{
		db:               db,
		schedule:         schedule,
		capacityRepo:     repository.NewCapacityRepository(db),
		accountRepo:      repository.NewAccountRepository(db),
		unlockRecordRepo: repository.NewUnlockRecordRepository(db),
	}
}

// CapacityState 容量账户当前状态
// NextTierCost 为 nil 表示已封顶（终态），不再有下一档
type CapacityState struct {
	AccountID    int64  `json:"account_id"`
	Kind         string `json:"kind"`
	CurrentMax   int    `json:"current_max"`
	TotalSpent   int64  `json:"total_spent"`
	Ceiling      int    `json:"ceiling"`
	NextTierCost *int64 `json:"next_tier_cost"`
}

// GetState 查询容量状态，账户不存在时按初始容量隐式开户
func (s *CapacityService) GetState(ctx context.Context, accountID int64, kind string) (*CapacityState, error) {
	rule, err := s.schedule.Rule(kind)
	if err != nil {
		return nil, err
	}

	acc, err := s.capacityRepo.GetOrCreate(ctx, accountID, kind, rule.DefaultMax)
	if err != nil {
		return nil, err
	}

	state := &CapacityState{
		AccountID:  acc.AccountID,
		Kind:       acc.Kind,
		CurrentMax: acc.CurrentMax,
		TotalSpent: acc.TotalSpent,
		Ceiling:    rule.Ceiling,
	}

	cost, ok, err := s.schedule.NextTierCost(kind, acc.CurrentMax)
	if err != nil {
		return nil, err
	}
	if ok {
		state.NextTierCost = &cost
	}
	return state, nil
}

// Preview 预览接下来 count 档的解锁价格，到上限截断
func (s *CapacityService) Preview(ctx context.Context, accountID int64, kind string, count int) ([]pricing.TierCost, error) {
	rule, err := s.schedule.Rule(kind)
	if err != nil {
		return nil, err
	}

	acc, err := s.capacityRepo.GetOrCreate(ctx, accountID, kind, rule.DefaultMax)
	if err != nil {
		return nil, err
	}

	return s.schedule.Preview(kind, acc.CurrentMax, count)
}

// CanAfford 当前余额是否够解锁下一档
// 已封顶返回 false，不是错误
func (s *CapacityService) CanAfford(ctx context.Context, accountID int64, kind string) (bool, error) {
	state, err := s.GetState(ctx, accountID, kind)
	if err != nil {
		return false, err
	}
	if state.NextTierCost == nil {
		return false, nil
	}

	account, err := s.accountRepo.GetOrCreate(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.Balance >= *state.NextTierCost, nil
}

// ListUnlockRecords 分页查询解锁历史
func (s *CapacityService) ListUnlockRecords(ctx context.Context, accountID int64, kind string, page, pageSize int) ([]*model.UnlockRecord, int64, error) {
	return s.unlockRecordRepo.ListByAccountID(ctx, accountID, kind, page, pageSize)
}
