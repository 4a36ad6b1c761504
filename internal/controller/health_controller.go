package controller

import (
	"net/http"

	"kidquest_backend/internal/service"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthController struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Gamification *service.GamificationService
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, gamification *service.GamificationService) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Gamification: gamification}
}

// @Summary 健康检查
// @Description 检查数据库、缓存和徽章目录
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()

	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.PingContext(reqCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	if err := c.Gamification.CheckCatalog(reqCtx); err != nil {
		logger.Log.Error("Badge catalog check failed", zap.Error(err))
		util.Error(ctx, http.StatusServiceUnavailable, "Badge catalog unavailable")
		return
	}

	cache := "disabled"
	if c.Redis != nil {
		cache = "up"
		if err := c.Redis.Ping(reqCtx).Err(); err != nil {
			// 缓存不可用时直接读库，不影响服务
			cache = "down"
		}
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"database": "up",
			"cache":    cache,
		},
	})
}
