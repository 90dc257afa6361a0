package app

import (
	"school_test_backend/internal/config"
	"school_test_backend/internal/middleware"
	"school_test_backend/internal/model"
	"school_test_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		// 块测试：查看对所有登录角色开放，改动仅限老师/教研员
		api.GET("/block-tests", c.blockTest.List)
		api.GET("/block-tests/:id", c.blockTest.Get)
		api.GET("/block-tests/:id/variants", c.variant.ListByTest)
		api.GET("/block-tests/:id/variants/:studentId", c.variant.GetByStudent)
		api.GET("/block-tests/:id/results", c.scoring.ListByTest)
		api.GET("/variants/by-code/:code", c.variant.GetByCode)
		api.GET("/results/:id", c.scoring.GetResult)
		api.GET("/students/:id/results", c.scoring.ListByStudent)
		api.GET("/students/:id/test-config", c.studentConfig.GetStudentConfig)

		staff := api.Group("/")
		staff.Use(middleware.RoleMiddleware(model.Teacher, model.Methodist, model.Manager))
		{
			staff.POST("/block-tests", c.blockTest.Create)
			staff.PUT("/block-tests/:id", c.blockTest.Update)
			staff.DELETE("/block-tests/:id", c.blockTest.Delete)
			staff.POST("/block-tests/import-confirm", c.blockTest.ImportConfirm)
			staff.POST("/block-tests/merge-duplicates", c.blockTest.MergeDuplicates)

			staff.POST("/block-tests/:id/generate-variants", c.variant.Generate)
			staff.DELETE("/block-tests/:id/variants", c.variant.Invalidate)

			staff.POST("/omr/upload", c.scoring.UploadScan)
			staff.POST("/omr/score", c.scoring.ScoreScan)
			staff.PUT("/results/:id/answers", c.scoring.Rescore)

			staff.PUT("/students/:id/test-config", c.studentConfig.SaveStudentConfig)
			staff.PUT("/group-subject-configs/:groupId/:subjectId", c.studentConfig.SaveGroupSubjectLetter)
		}
	}
}
