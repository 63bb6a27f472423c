package handler

import (
	"slotsystem/internal/config"
	"slotsystem/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, schedule *pricing.Schedule) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg, schedule)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 容量相关
		capacity := api.Group("/capacity")
		{
			capacity.GET("/state", h.GetCapacityState)
			capacity.GET("/preview", h.PreviewTiers)
			capacity.POST("/unlock", h.UnlockNextTier)
			capacity.GET("/records", h.ListUnlockRecords)
		}

		// 点数相关
		points := api.Group("/points")
		{
			points.GET("/balance", h.GetBalance)
			points.POST("/grant", h.GrantPoints)
			points.GET("/transactions", h.ListTransactions)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
