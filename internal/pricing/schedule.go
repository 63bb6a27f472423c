package pricing

import (
	"errors"

	"slotsystem/internal/config"
	"slotsystem/internal/model"
)

var (
	ErrInvalidTier = errors.New("目标档位不合法")
	ErrUnknownKind = errors.New("未知的账户类型")
)

// partner 定价公式：cost(tier) = (tier - 9) * 100
// 第 10 格 100 点，第 11 格 200 点，依此类推；公式非正的档位不可购买
const (
	partnerCostBase = 9
	partnerCostStep = 100
)

// KindRule 某一账户类型的容量规则
type KindRule struct {
	DefaultMax int // 初始容量（免费档位数）
	Ceiling    int // 可达到的容量上限
}

// TierCost 预览结果中的一项
type TierCost struct {
	Tier int   `json:"tier"`
	Cost int64 `json:"cost"`
}

// Schedule 容量定价表，进程内唯一的权威副本
// 预览和扣款都从同一个 Schedule 取价，绝不允许第二份拷贝
// 纯查表/公式计算，无任何 I/O，可安全并发读
type Schedule struct {
	rules     map[string]KindRule
	userCosts map[int]int64
}

// 配置缺省时的兜底规则
var (
	defaultRules = map[string]KindRule{
		model.AccountKindUser:    {DefaultMax: 1, Ceiling: 10},
		model.AccountKindPartner: {DefaultMax: 9, Ceiling: 13},
	}

	defaultUserCosts = map[int]int64{
		2: 50, 3: 100, 4: 200, 5: 350, 6: 550,
		7: 800, 8: 1100, 9: 1450, 10: 1850,
	}
)

// NewSchedule 从配置构建定价表，缺失的字段回落到兜底规则
func NewSchedule(cfg *config.CapacityConfig) *Schedule {
	s := Default()
	if cfg == nil {
		return s
	}

	applyKind := func(kind string, kc config.CapacityKindConfig) {
		rule := s.rules[kind]
		if kc.DefaultMax > 0 {
			rule.DefaultMax = kc.DefaultMax
		}
		if kc.Ceiling > 0 {
			rule.Ceiling = kc.Ceiling
		}
		s.rules[kind] = rule
	}
	applyKind(model.AccountKindUser, cfg.User)
	applyKind(model.AccountKindPartner, cfg.Partner)

	if len(cfg.User.CostTable) > 0 {
		costs := make(map[int]int64, len(cfg.User.CostTable))
		for tier, cost := range cfg.User.CostTable {
			costs[tier] = cost
		}
		s.userCosts = costs
	}
	return s
}

// Default 返回内置规则的定价表
func Default() *Schedule {
	rules := make(map[string]KindRule, len(defaultRules))
	for k, v := range defaultRules {
		rules[k] = v
	}
	costs := make(map[int]int64, len(defaultUserCosts))
	for k, v := range defaultUserCosts {
		costs[k] = v
	}
	return &Schedule{rules: rules, userCosts: costs}
}

// Rule 返回账户类型对应的容量规则
func (s *Schedule) Rule(kind string) (KindRule, error) {
	rule, ok := s.rules[kind]
	if !ok {
		return KindRule{}, ErrUnknownKind
	}
	return rule, nil
}

// Cost 返回解锁指定档位的点数价格
// tier 是解锁后达到的容量值，必须落在 (default_max, ceiling] 区间
func (s *Schedule) Cost(kind string, tier int) (int64, error) {
	rule, err := s.Rule(kind)
	if err != nil {
		return 0, err
	}
	if tier <= rule.DefaultMax || tier > rule.Ceiling {
		return 0, ErrInvalidTier
	}

	if kind == model.AccountKindPartner {
		cost := int64(tier-partnerCostBase) * partnerCostStep
		if cost <= 0 {
			return 0, ErrInvalidTier
		}
		return cost, nil
	}

	cost, ok := s.userCosts[tier]
	if !ok {
		return 0, ErrInvalidTier
	}
	return cost, nil
}

// NextTierCost 返回从 currentMax 再升一格的价格
// 已达上限返回 (0, false, nil)，false 表示没有下一档
func (s *Schedule) NextTierCost(kind string, currentMax int) (int64, bool, error) {
	rule, err := s.Rule(kind)
	if err != nil {
		return 0, false, err
	}
	if currentMax >= rule.Ceiling {
		return 0, false, nil
	}
	cost, err := s.Cost(kind, currentMax+1)
	if err != nil {
		return 0, false, err
	}
	return cost, true, nil
}

// Preview 预览从 currentMax 起接下来 count 档的 (档位, 价格) 序列
// 到达上限即截断；无状态，每次调用重新计算
func (s *Schedule) Preview(kind string, currentMax, count int) ([]TierCost, error) {
	rule, err := s.Rule(kind)
	if err != nil {
		return nil, err
	}
	if currentMax < rule.DefaultMax || currentMax > rule.Ceiling {
		return nil, ErrInvalidTier
	}

	result := make([]TierCost, 0, count)
	for tier := currentMax + 1; tier <= rule.Ceiling && len(result) < count; tier++ {
		cost, err := s.Cost(kind, tier)
		if err != nil {
			return nil, err
		}
		result = append(result, TierCost{Tier: tier, Cost: cost})
	}
	return result, nil
}

// ExpectedTotalSpent 按价格表重算从初始容量升到 currentMax 的应计总花费
// 对账任务用它校验 total_spent 的守恒性
func (s *Schedule) ExpectedTotalSpent(kind string, currentMax int) (int64, error) {
	rule, err := s.Rule(kind)
	if err != nil {
		return 0, err
	}
	if currentMax < rule.DefaultMax || currentMax > rule.Ceiling {
		return 0, ErrInvalidTier
	}

	var total int64
	for tier := rule.DefaultMax + 1; tier <= currentMax; tier++ {
		cost, err := s.Cost(kind, tier)
		if err != nil {
			return 0, err
		}
		total += cost
	}
	return total, nil
}
