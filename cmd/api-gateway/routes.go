package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assessment-api/internal/handler"
	"github.com/noah-isme/sma-assessment-api/internal/middleware"
	"github.com/noah-isme/sma-assessment-api/internal/models"
)

type routeHandlers struct {
	types      *handler.AssessmentTypeHandler
	setups     *handler.AssessmentSetupHandler
	gsas       *handler.GradeSubjectAssessmentHandler
	gates      *handler.ConductedAssessmentHandler
	scores     *handler.AssessmentScoreHandler
	recalcJobs *handler.RecalculationHandler
	metrics    *handler.MetricsHandler
	tokens     middleware.TokenValidator
}

func registerRoutes(r *gin.Engine, prefix string, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/metrics/snapshot", h.metrics.Snapshot)

	managers := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCoordinator)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCoordinator, models.RoleTeacher)

	api := r.Group(prefix)
	api.Use(middleware.JWT(h.tokens))

	types := api.Group("/assessment-types")
	types.GET("", h.types.List)
	types.GET("/:id", h.types.Get)
	types.POST("", managers, h.types.Create)
	types.PUT("/:id", managers, h.types.Update)
	types.DELETE("/:id", managers, h.types.Delete)

	setups := api.Group("/assessment-setups")
	setups.GET("", h.setups.List)
	setups.GET("/default", h.setups.Default)
	setups.GET("/:id", h.setups.Get)
	setups.POST("", managers, h.setups.Create)
	setups.PUT("/:id", managers, h.setups.Update)
	setups.DELETE("/:id", managers, h.setups.Delete)

	gsas := api.Group("/grade-subject-assessments", managers)
	gsas.GET("", h.gsas.List)
	gsas.GET("/:id", h.gsas.Get)
	gsas.POST("", h.gsas.Create)
	gsas.PUT("/:id/setup", h.gsas.AssignSetup)
	gsas.POST("/:id/recalculate", h.gsas.Recalculate)
	gsas.DELETE("/:id", h.gsas.Delete)

	api.GET("/recalculation-jobs/:id", managers, h.recalcJobs.Status)

	gates := api.Group("/conducted-assessments", staff)
	gates.GET("", h.gates.List)
	gates.GET("/:id", h.gates.Get)
	gates.POST("", h.gates.Create)
	gates.POST("/conduct", h.gates.MarkConducted)

	scores := api.Group("/assessment-scores")
	scores.GET("", staff, h.scores.List)
	scores.GET("/student/:studentId", h.scores.ListForStudent)
	scores.GET("/:id", h.scores.Get)
	scores.POST("/generate/single", staff, h.scores.GenerateSingle)
	scores.POST("/generate/multiple", staff, h.scores.GenerateMultiple)
	scores.POST("/generate/bulk", staff, h.scores.GenerateBulk)
	scores.PUT("/batch", staff, h.scores.BatchUpdate)
	scores.PUT("/:id", staff, h.scores.Update)
}
