package controller

import (
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ParentController serves the guardian dashboard.
type ParentController struct {
	ReportService *service.ReportService
	FamilyService *service.FamilyService
}

func NewParentController(reportService *service.ReportService, familyService *service.FamilyService) *ParentController {
	return &ParentController{ReportService: reportService, FamilyService: familyService}
}

type guardianRequest struct {
	Username string `json:"username" binding:"required"`
}

func childID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid child id")
		return 0, false
	}
	return id, true
}

// @Summary 孩子列表
// @Tags 家长
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/parent/children [get]
func (c *ParentController) ListChildren(ctx *gin.Context) {
	children, err := c.ReportService.ListChildren(ctx.Request.Context(), util.GetIdentity(ctx))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, children)
}

// @Summary 创建孩子账号
// @Tags 家长
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateChildRequest true "孩子信息"
// @Success 201 {object} util.Response
// @Router /api/parent/children [post]
func (c *ParentController) CreateChild(ctx *gin.Context) {
	var req service.CreateChildRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	child, err := c.FamilyService.CreateChild(ctx.Request.Context(), util.GetIdentity(ctx), req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Created(ctx, child)
}

// @Summary 添加监护人
// @Tags 家长
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "孩子ID"
// @Param body body guardianRequest true "另一位家长的用户名"
// @Success 200 {object} util.Response
// @Router /api/parent/children/{id}/guardians [post]
func (c *ParentController) AddGuardian(ctx *gin.Context) {
	id, ok := childID(ctx)
	if !ok {
		return
	}
	var req guardianRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.FamilyService.AddGuardian(ctx.Request.Context(), util.GetIdentity(ctx), id, req.Username); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 孩子学习报告
// @Tags 家长
// @Produce json
// @Security BearerAuth
// @Param id path int true "孩子ID"
// @Success 200 {object} util.Response
// @Router /api/parent/children/{id}/report [get]
func (c *ParentController) GetReport(ctx *gin.Context) {
	id, ok := childID(ctx)
	if !ok {
		return
	}

	report, err := c.ReportService.GetChildProgressDetailsForReport(ctx.Request.Context(), util.GetIdentity(ctx), id)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 近30天学习日历
// @Tags 家长
// @Produce json
// @Security BearerAuth
// @Param id path int true "孩子ID"
// @Success 200 {object} util.Response
// @Router /api/parent/children/{id}/calendar [get]
func (c *ParentController) GetActivityCalendar(ctx *gin.Context) {
	id, ok := childID(ctx)
	if !ok {
		return
	}

	days, err := c.ReportService.GetActivityCalendar(ctx.Request.Context(), util.GetIdentity(ctx), id)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, days)
}
