package controller

import (
	"strconv"

	"kidquest_backend/internal/service"
	"kidquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	GamificationService *service.GamificationService
}

func NewGamificationController(gamificationService *service.GamificationService) *GamificationController {
	return &GamificationController{GamificationService: gamificationService}
}

// @Summary 徽章墙
// @Description 全部徽章及该用户的获得情况
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/users/{id}/badges [get]
func (c *GamificationController) ListBadges(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	badges, err := c.GamificationService.ListBadges(ctx.Request.Context(), util.GetIdentity(ctx), userID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 获取排行榜
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Param scope query string false "family 或 global" default(family)
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/leaderboard [get]
func (c *GamificationController) Leaderboard(ctx *gin.Context) {
	limit := 0
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	board, err := c.GamificationService.Leaderboard(ctx.Request.Context(), util.GetIdentity(ctx), ctx.DefaultQuery("scope", service.ScopeFamily), limit)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, board)
}
