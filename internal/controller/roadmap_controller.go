package controller

import (
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RoadmapController struct {
	RoadmapService *service.RoadmapService
}

func NewRoadmapController(roadmapService *service.RoadmapService) *RoadmapController {
	return &RoadmapController{RoadmapService: roadmapService}
}

// @Summary 学科学习路线
// @Tags 学习路线
// @Produce json
// @Security BearerAuth
// @Param subject query string false "学科，为空时返回全部"
// @Success 200 {object} util.Response
// @Router /api/roadmap [get]
func (c *RoadmapController) GetSubjectRoadmap(ctx *gin.Context) {
	items, err := c.RoadmapService.GetSubjectRoadmap(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Query("subject"))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// @Summary 课程学习路线
// @Tags 学习路线
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/roadmap [get]
func (c *RoadmapController) GetCourseRoadmap(ctx *gin.Context) {
	view, err := c.RoadmapService.GetCourseRoadmap(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("id"))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, view)
}
