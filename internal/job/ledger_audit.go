package job

import (
	"context"
	"log"
	"time"

	"slotsystem/internal/config"
	"slotsystem/internal/metrics"
	"slotsystem/internal/pricing"
	"slotsystem/internal/repository"

	"gorm.io/gorm"
)

// LedgerAuditJob 容量账本对账任务
//
// 守恒性校验：total_spent 必须等于从初始容量升到 current_max
// 沿途每一档价格之和。解锁事务本身保证这一点，对账是兜底，
// 发现偏差只告警不自动修数，留给人工排查。
type LedgerAuditJob struct {
	db           *gorm.DB
	capacityRepo *repository.CapacityRepository
	schedule     *pricing.Schedule
	cfg          *config.Config
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewLedgerAuditJob(db *gorm.DB, cfg *config.Config, schedule *pricing.Schedule) *LedgerAuditJob {
	batchSize := cfg.Business.AuditBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	return &LedgerAuditJob{
		db:           db,
		capacityRepo: repository.NewCapacityRepository(db),
		schedule:     schedule,
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		interval:     5 * time.Minute,
		batchSize:    batchSize,
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	log.Println("[LedgerAuditJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LedgerAuditJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LedgerAuditJob] 任务停止")
			return
		case <-ticker.C:
			j.auditOnce(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

// auditOnce 全表分批扫描一轮
func (j *LedgerAuditJob) auditOnce(ctx context.Context) {
	var lastID int64
	checked := 0
	drifted := 0

	for {
		accounts, err := j.capacityRepo.List(ctx, lastID, j.batchSize)
		if err != nil {
			log.Printf("[LedgerAuditJob] 扫描容量账户失败: %v", err)
			return
		}
		if len(accounts) == 0 {
			break
		}

		for _, acc := range accounts {
			lastID = acc.ID
			checked++

			expected, err := j.schedule.ExpectedTotalSpent(acc.Kind, acc.CurrentMax)
			if err != nil {
				log.Printf("[LedgerAuditJob] 账户规则异常: accountID=%d, kind=%s, currentMax=%d, err=%v",
					acc.AccountID, acc.Kind, acc.CurrentMax, err)
				drifted++
				metrics.LedgerDriftTotal.Inc()
				continue
			}

			if acc.TotalSpent != expected {
				log.Printf("[LedgerAuditJob] 发现账本偏差: accountID=%d, kind=%s, currentMax=%d, totalSpent=%d, 应为=%d",
					acc.AccountID, acc.Kind, acc.CurrentMax, acc.TotalSpent, expected)
				drifted++
				metrics.LedgerDriftTotal.Inc()
			}
		}

		if len(accounts) < j.batchSize {
			break
		}
	}

	if drifted > 0 {
		log.Printf("[LedgerAuditJob] 本轮检查 %d 个账户，发现 %d 个偏差", checked, drifted)
	}
}
