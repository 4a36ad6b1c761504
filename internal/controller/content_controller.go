package controller

import (
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// @Summary 获取学习内容
// @Description 返回内容详情及解码后的载荷，测验不含答案
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response
// @Router /api/contents/{id} [get]
func (c *ContentController) GetContent(ctx *gin.Context) {
	detail, err := c.ContentService.GetContent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary 内容列表
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param type query string false "STORY|QUIZ|LESSON|COURSE|GAME"
// @Param subject query string false "学科"
// @Param courseId query string false "课程ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/contents [get]
func (c *ContentController) ListContent(ctx *gin.Context) {
	page, limit := util.Pagination(ctx.Query("page"), ctx.Query("limit"))
	filter := repository.ContentFilter{
		ContentType: model.ContentType(ctx.Query("type")),
		Subject:     ctx.Query("subject"),
		CourseID:    ctx.Query("courseId"),
	}

	items, total, err := c.ContentService.ListContent(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// @Summary 学科列表
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/subjects [get]
func (c *ContentController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.ContentService.ListSubjects(ctx.Request.Context())
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}
