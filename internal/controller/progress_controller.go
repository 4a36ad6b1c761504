package controller

import (
	"strconv"
	"strings"

	"kidquest_backend/internal/service"
	"kidquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type blockRequest struct {
	BlockID string `json:"blockId" binding:"required"`
}

type quizSubmission struct {
	Answers []int `json:"answers" binding:"required"`
}

// @Summary 记录阅读到的故事页
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path string true "故事ID"
// @Param page path int true "页码(从1开始)"
// @Success 200 {object} util.Response
// @Router /api/progress/stories/{id}/pages/{page} [post]
func (c *ProgressController) RecordStoryPage(ctx *gin.Context) {
	page, err := strconv.Atoi(ctx.Param("page"))
	if err != nil {
		util.BadRequest(ctx, "invalid page number")
		return
	}

	blocks, err := c.ProgressService.RecordStoryPage(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("id"), page)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"completedBlocks": blocks})
}

// @Summary 完成课程小节
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程内容ID"
// @Param body body blockRequest true "小节ID"
// @Success 200 {object} util.Response
// @Router /api/progress/lessons/{id}/blocks [post]
func (c *ProgressController) CompleteLessonBlock(ctx *gin.Context) {
	var req blockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	blocks, err := c.ProgressService.CompleteLessonBlock(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("id"), req.BlockID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"completedBlocks": blocks})
}

// @Summary 记录任意内容的进度标记
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Param body body blockRequest true "标记ID"
// @Success 200 {object} util.Response
// @Router /api/progress/content/{id}/blocks [post]
func (c *ProgressController) UpsertBlock(ctx *gin.Context) {
	var req blockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	blocks, err := c.ProgressService.UpsertBlockProgress(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("id"), req.BlockID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"completedBlocks": blocks})
}

// @Summary 完成故事/课程/游戏
// @Description 写入完成状态并发放积分，徽章和课程进度尽力更新
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response
// @Router /api/progress/content/{id}/complete [post]
func (c *ProgressController) CompleteContent(ctx *gin.Context) {
	res, err := c.ProgressService.CompleteContent(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("id"))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 提交测验
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param body body quizSubmission true "每题所选选项下标"
// @Success 200 {object} util.Response
// @Router /api/progress/quizzes/{id}/submit [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	var req quizSubmission
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.ProgressService.SubmitQuiz(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("id"), req.Answers)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 查询学习记录
// @Description 本人或已关联的家长可查看
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param contentIds query string false "逗号分隔的内容ID"
// @Success 200 {object} util.Response
// @Router /api/users/{id}/progress [get]
func (c *ProgressController) ReadProgress(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	var contentIDs []string
	for _, id := range strings.Split(ctx.Query("contentIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			contentIDs = append(contentIDs, id)
		}
	}

	rows, err := c.ProgressService.ReadProgressForUser(ctx.Request.Context(), util.GetIdentity(ctx), userID, contentIDs)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, rows)
}
