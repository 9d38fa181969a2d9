package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/stms-api/internal/handler"
	"github.com/noah-isme/stms-api/internal/middleware"
	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/internal/service"
	"github.com/noah-isme/stms-api/pkg/config"
	"github.com/noah-isme/stms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/stms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/stms-api/pkg/middleware/requestid"
)

type routeDeps struct {
	cfg      *config.Config
	verifier middleware.TokenValidator
	metrics  *service.MetricsService
	reports  *handler.ReportHandler
	exports  *handler.ExportHandler
	observer *handler.MetricsHandler
}

func newRouter(deps routeDeps, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(deps.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/health", "/ready", "/metrics"))

	r.GET("/health", deps.observer.Health)
	r.GET("/ready", deps.observer.Ready)
	r.GET("/metrics", deps.observer.Prometheus)

	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleTeacher, models.RoleAdmin}

	api := r.Group(deps.cfg.APIPrefix)
	api.GET("/exports/:token", deps.exports.Fetch)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.verifier), middleware.WithResponseMeta())

	reports := secured.Group("/reports")
	reports.GET("/overview", middleware.RequireRoles(staff...), deps.reports.Overview)
	// students may only open their own report; the service resolves uids.
	reports.GET("/students/:id", middleware.RequireRoles(append(staff, models.RoleStudent)...), deps.reports.StudentReport)
	reports.GET("/classes/:id", middleware.RequireRoles(staff...), deps.reports.ClassReport)
	reports.GET("/gradebook", middleware.RequireRoles(staff...), deps.reports.Gradebook)
	reports.GET("/activity", middleware.RequireRoles(staff...), deps.reports.Activity)
	reports.GET("/me", middleware.RequireRoles(models.RoleStudent), deps.reports.Me)
	reports.POST("/refresh", middleware.RequireRoles(models.RoleAdmin), deps.reports.Refresh)

	exports := secured.Group("/exports")
	exports.GET("/gradebook", middleware.RequireRoles(staff...), deps.exports.Download)
	exports.POST("/gradebook", middleware.RequireRoles(staff...), deps.exports.Generate)

	secured.GET("/metrics/system", middleware.RequireRoles(models.RoleAdmin), deps.observer.System)

	return r
}
