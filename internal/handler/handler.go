package handler

import (
	"errors"
	"strconv"

	"slotsystem/internal/config"
	"slotsystem/internal/model"
	"slotsystem/internal/pricing"
	"slotsystem/internal/repository"
	"slotsystem/internal/service"
	"slotsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	capacityService *service.CapacityService
	unlockService   *service.UnlockService
	pointsService   *service.PointsService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, schedule *pricing.Schedule) *Handler {
	return &Handler{
		capacityService: service.NewCapacityService(db, schedule),
		unlockService:   service.NewUnlockService(db, rdb, cfg, schedule),
		pointsService:   service.NewPointsService(db, cfg),
	}
}

func parseAccountID(c *gin.Context) (int64, bool) {
	accountIDStr := c.Query("account_id")
	accountID, err := strconv.ParseInt(accountIDStr, 10, 64)
	if err != nil || accountID <= 0 {
		response.ParamError(c, "account_id 参数错误")
		return 0, false
	}
	return accountID, true
}

func parseKind(c *gin.Context) (string, bool) {
	kind := c.Query("kind")
	if !model.ValidAccountKind(kind) {
		response.BusinessError(c, response.CodeUnknownKind, "kind 必须是 USER 或 PARTNER")
		return "", false
	}
	return kind, true
}

// businessError 把领域错误映射成业务码
// 未识别的错误按服务端错误处理，由调用方按"稍后重试"提示
func businessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyAtCeiling):
		response.BusinessError(c, response.CodeAlreadyAtCeiling, "已达容量上限")
	case errors.Is(err, repository.ErrInsufficientPoints):
		response.BusinessError(c, response.CodeInsufficientPoints, "点数余额不足")
	case errors.Is(err, service.ErrTooManyConflicts), errors.Is(err, repository.ErrOptimisticLock):
		response.BusinessError(c, response.CodeConcurrentConflict, "操作冲突，请稍后重试")
	case errors.Is(err, pricing.ErrInvalidTier):
		response.BusinessError(c, response.CodeInvalidTier, "目标档位不合法")
	case errors.Is(err, pricing.ErrUnknownKind):
		response.BusinessError(c, response.CodeUnknownKind, "未知的账户类型")
	case errors.Is(err, repository.ErrAccountNotFound), errors.Is(err, repository.ErrCapacityNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, "账户不存在")
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 容量相关接口
// ============================================================

// GetCapacityState 查询容量状态
// GET /api/v1/capacity/state?account_id=xxx&kind=USER
func (h *Handler) GetCapacityState(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	state, err := h.capacityService.GetState(c.Request.Context(), accountID, kind)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, state)
}

// PreviewTiers 预览接下来若干档的解锁价格
// GET /api/v1/capacity/preview?account_id=xxx&kind=USER&count=3
func (h *Handler) PreviewTiers(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	count, _ := strconv.Atoi(c.DefaultQuery("count", "3"))
	if count <= 0 {
		response.ParamError(c, "count 参数错误")
		return
	}

	tiers, err := h.capacityService.Preview(c.Request.Context(), accountID, kind, count)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_id": accountID,
		"kind":       kind,
		"tiers":      tiers,
	})
}

// UnlockRequest 解锁请求
type UnlockRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
}

// UnlockNextTier 解锁下一档容量
// POST /api/v1/capacity/unlock
//
// 【关键点】该接口不做幂等，连续调用会解锁多档、扣多次点，
// 前端必须在请求在途时禁用按钮
func (h *Handler) UnlockNextTier(c *gin.Context) {
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if !model.ValidAccountKind(req.Kind) {
		response.BusinessError(c, response.CodeUnknownKind, "kind 必须是 USER 或 PARTNER")
		return
	}

	result, err := h.unlockService.UnlockNextTier(c.Request.Context(), req.AccountID, req.Kind)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, result)
}

// ListUnlockRecords 查询解锁历史
// GET /api/v1/capacity/records?account_id=xxx&kind=USER&page=1&page_size=10
func (h *Handler) ListUnlockRecords(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	records, total, err := h.capacityService.ListUnlockRecords(c.Request.Context(), accountID, kind, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 点数相关接口
// ============================================================

// GetBalance 查询点数余额
// GET /api/v1/points/balance?account_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	account, err := h.pointsService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_id": account.AccountID,
		"balance":    account.Balance,
	})
}

// GrantRequest 发放点数请求
type GrantRequest struct {
	AccountID int64 `json:"account_id" binding:"required"`
	Amount    int64 `json:"amount" binding:"required,gt=0"`
}

// GrantPoints 发放点数（简化版，实际应由上游活动系统调用）
// POST /api/v1/points/grant
func (h *Handler) GrantPoints(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.pointsService.Grant(c.Request.Context(), req.AccountID, req.Amount); err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "发放成功",
	})
}

// ListTransactions 查询点数流水
// GET /api/v1/points/transactions?account_id=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.pointsService.ListTransactions(c.Request.Context(), accountID, page, pageSize)
	if err != nil {
		businessError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
