package app

import (
	"kidquest_backend/internal/config"
	"kidquest_backend/internal/middleware"
	"kidquest_backend/internal/model"
	"kidquest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)

		// 家长相关接口
		parent := authGroup.Group("/parent")
		parent.Use(middleware.RoleMiddleware(model.Parent))
		a.registerParentRoutes(parent, c)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	// 内容
	rg.GET("/subjects", c.content.ListSubjects)
	rg.GET("/contents", c.content.ListContent)
	rg.GET("/contents/:id", c.content.GetContent)

	// 学习路线
	rg.GET("/roadmap", c.roadmap.GetSubjectRoadmap)
	rg.GET("/courses/:id/roadmap", c.roadmap.GetCourseRoadmap)

	// 学习进度
	progress := rg.Group("/progress")
	{
		progress.POST("/stories/:id/pages/:page", c.progress.RecordStoryPage)
		progress.POST("/lessons/:id/blocks", c.progress.CompleteLessonBlock)
		progress.POST("/quizzes/:id/submit", c.progress.SubmitQuiz)
		progress.POST("/content/:id/blocks", c.progress.UpsertBlock)
		progress.POST("/content/:id/complete", c.progress.CompleteContent)
	}

	// 用户维度查询（本人或监护人）
	rg.GET("/users/:id/progress", c.progress.ReadProgress)
	rg.GET("/users/:id/badges", c.gamification.ListBadges)

	// 排行榜
	rg.GET("/leaderboard", c.gamification.Leaderboard)
}

func (a *App) registerParentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/children", c.parent.ListChildren)
	rg.POST("/children", c.parent.CreateChild)
	rg.POST("/children/:id/guardians", c.parent.AddGuardian)
	rg.GET("/children/:id/report", c.parent.GetReport)
	rg.GET("/children/:id/calendar", c.parent.GetActivityCalendar)
}
