package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"slotsystem/internal/config"
	"slotsystem/internal/infrastructure/lock"
	"slotsystem/internal/metrics"
	"slotsystem/internal/model"
	"slotsystem/internal/pricing"
	"slotsystem/internal/repository"
	"slotsystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadyAtCeiling = errors.New("已达容量上限")
	ErrTooManyConflicts = errors.New("并发冲突次数过多，请稍后重试")
)

// UnlockService 容量解锁事务协调器
//
// 【关键点】解锁是整个系统最核心的操作，需要保证：
// 1. 原子性：扣点、容量升级、解锁记录、流水必须同时成功或同时失败，
//    绝不允许出现"扣了点没升级"或"升了级没扣点"的中间态
// 2. 并发安全：同一账户的并发解锁通过分布式锁 + 乐观锁版本号串行化，
//    余额只够一格时两个并发请求只能成功一个
// 3. 不做幂等：连点两次就是解锁两格、扣两次点，去重是调用方的责任
type UnlockService struct {
	db               *gorm.DB
	redisClient      *redis.Client
	cfg              *config.Config
	schedule         *pricing.Schedule
	capacityRepo     *repository.CapacityRepository
	accountRepo      *repository.AccountRepository
	unlockRecordRepo *repository.UnlockRecordRepository
	transactionRepo  *repository.TransactionRepository
	outboxRepo       *repository.OutboxRepository
}

func NewUnlockService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, schedule *pricing.Schedule) *UnlockService {
	return &UnlockService{
		db:               db,
		redisClient:      redisClient,
		cfg:              cfg,
		schedule:         schedule,
		capacityRepo:     repository.NewCapacityRepository(db),
		accountRepo:      repository.NewAccountRepository(db),
		unlockRecordRepo: repository.NewUnlockRecordRepository(db),
		transactionRepo:  repository.NewTransactionRepository(db),
		outboxRepo:       repository.NewOutboxRepository(db),
	}
}

// UnlockResult 解锁成功的返回值
type UnlockResult struct {
	UnlockNo   string `json:"unlock_no"`
	AccountID  int64  `json:"account_id"`
	Kind       string `json:"kind"`
	NewMax     int    `json:"new_max"`
	CostPaid   int64  `json:"cost_paid"`
	NewBalance int64  `json:"new_balance"`
}

// UnlockNextTier 解锁下一档容量
//
// 流程：读当前容量 -> 封顶检查 -> 查价 -> 单个数据库事务内
// 条件扣点 + 条件升级 + 追加解锁记录 + 追加流水 + 落 outbox 消息。
// 乐观锁冲突时整个事务尚未提交，内部重试是安全的，最多重试
// business.unlock_max_retries 次。
func (s *UnlockService) UnlockNextTier(ctx context.Context, accountID int64, kind string) (*UnlockResult, error) {
	rule, err := s.schedule.Rule(kind)
	if err != nil {
		return nil, err
	}

	// 同一账户串行化；redis 不可用的部署（如单测）退化为纯乐观锁
	if s.redisClient != nil {
		unlockLock := lock.NewUnlockLock(s.redisClient, accountID, kind, uuid.NewString())
		if err := unlockLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer unlockLock.Unlock(ctx)
	}

	maxRetries := s.cfg.Business.UnlockMaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := s.tryUnlock(ctx, accountID, kind, rule)
		if err == nil {
			metrics.UnlockTotal.WithLabelValues(kind, metrics.ResultSuccess).Inc()
			log.Printf("解锁成功: unlockNo=%s, accountID=%d, kind=%s, newMax=%d, cost=%d",
				result.UnlockNo, accountID, kind, result.NewMax, result.CostPaid)
			return result, nil
		}

		if errors.Is(err, repository.ErrOptimisticLock) {
			log.Printf("解锁乐观锁冲突，重试: accountID=%d, kind=%s, attempt=%d", accountID, kind, attempt+1)
			continue
		}

		switch {
		case errors.Is(err, ErrAlreadyAtCeiling):
			metrics.UnlockTotal.WithLabelValues(kind, metrics.ResultCeiling).Inc()
		case errors.Is(err, repository.ErrInsufficientPoints):
			metrics.UnlockTotal.WithLabelValues(kind, metrics.ResultInsufficient).Inc()
		default:
			metrics.UnlockTotal.WithLabelValues(kind, metrics.ResultError).Inc()
		}
		return nil, err
	}

	metrics.UnlockTotal.WithLabelValues(kind, metrics.ResultConflict).Inc()
	return nil, ErrTooManyConflicts
}

func (s *UnlockService) tryUnlock(ctx context.Context, accountID int64, kind string, rule pricing.KindRule) (*UnlockResult, error) {
	capAcc, err := s.capacityRepo.GetOrCreate(ctx, accountID, kind, rule.DefaultMax)
	if err != nil {
		return nil, fmt.Errorf("获取容量账户失败: %w", err)
	}

	// 封顶即终态，直接拒绝，不产生任何副作用
	if capAcc.CurrentMax >= rule.Ceiling {
		return nil, ErrAlreadyAtCeiling
	}

	newMax := capAcc.CurrentMax + 1
	cost, err := s.schedule.Cost(kind, newMax)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetOrCreate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("获取点数账户失败: %w", err)
	}

	// 预检只是快速失败，真正的余额校验在事务内的条件 UPDATE 里
	if account.Balance < cost {
		return nil, repository.ErrInsufficientPoints
	}

	unlockNo := idgen.GenerateUnlockNo()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 扣点与升级耦合在同一事务：扣点失败绝不升级，升级失败则扣点一起回滚
		if err := s.accountRepo.Debit(ctx, tx, accountID, cost, account.Version); err != nil {
			return err
		}

		if err := s.capacityRepo.UpgradeTier(ctx, tx, accountID, kind, capAcc.CurrentMax, cost, capAcc.Version, rule.Ceiling); err != nil {
			return err
		}

		record := &model.UnlockRecord{
			UnlockNo:     unlockNo,
			AccountID:    accountID,
			Kind:         kind,
			TierUnlocked: newMax,
			CostPaid:     cost,
		}
		if err := s.unlockRecordRepo.Create(ctx, tx, record); err != nil {
			return fmt.Errorf("记录解锁失败: %w", err)
		}

		transaction := &model.PointTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     accountID,
			RefNo:         unlockNo,
			Amount:        -cost,
			Type:          model.TransactionTypeUnlock,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance - cost,
			Remark:        fmt.Sprintf("解锁容量-%s-第%d格", kind, newMax),
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"unlock_no":     unlockNo,
			"account_id":    accountID,
			"kind":          kind,
			"tier_unlocked": newMax,
			"cost_paid":     cost,
			"unlocked_at":   time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: unlockNo,
			Topic:      s.cfg.Kafka.Topic.CapacityUnlocked,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &UnlockResult{
		UnlockNo:   unlockNo,
		AccountID:  accountID,
		Kind:       kind,
		NewMax:     newMax,
		CostPaid:   cost,
		NewBalance: account.Balance - cost,
	}, nil
}
