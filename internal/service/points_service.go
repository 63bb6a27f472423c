package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotsystem/internal/config"
	"slotsystem/internal/metrics"
	"slotsystem/internal/model"
	"slotsystem/internal/repository"
	"slotsystem/pkg/idgen"

	"gorm.io/gorm"
)

// PointsService 点数账户服务
// 点数是全系统多个消费功能共享的钱包，这里只提供查询和发放入口
type PointsService struct {
	db              *gorm.DB
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewPointsService(db *gorm.DB, cfg *config.Config) *PointsService {
	return &PointsService{
		db:              db,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

func (s *PointsService) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	return s.accountRepo.GetOrCreate(ctx, accountID)
}

func (s *PointsService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Grant 发放点数（简化版，实际来源是活动/签到等上游系统）
func (s *PointsService) Grant(ctx context.Context, accountID int64, amount int64) error {
	if amount <= 0 {
		return errors.New("发放点数必须大于0")
	}

	account, err := s.accountRepo.GetOrCreate(ctx, accountID)
	if err != nil {
		return err
	}

	grantNo := idgen.GenerateGrantNo()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Increase(ctx, tx, accountID, amount); err != nil {
			return fmt.Errorf("点数入账失败: %w", err)
		}

		transaction := &model.PointTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			AccountID:     accountID,
			RefNo:         grantNo,
			Amount:        amount,
			Type:          model.TransactionTypeGrant,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + amount,
			Remark:        fmt.Sprintf("发放点数-%s", grantNo),
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"grant_no":   grantNo,
			"account_id": accountID,
			"amount":     amount,
			"granted_at": time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: grantNo,
			Topic:      s.cfg.Kafka.Topic.PointsGranted,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return err
	}

	metrics.PointsGrantedTotal.Add(float64(amount))
	return nil
}

// ListTransactions 分页查询点数流水
func (s *PointsService) ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]*model.PointTransaction, int64, error) {
	return s.transactionRepo.ListByAccountID(ctx, accountID, page, pageSize)
}
