package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/handler"
	"github.com/noah-isme/sma-bulletin-core/internal/middleware"
	"github.com/noah-isme/sma-bulletin-core/internal/service"
	"github.com/noah-isme/sma-bulletin-core/pkg/config"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
	"github.com/noah-isme/sma-bulletin-core/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-bulletin-core/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-bulletin-core/pkg/middleware/requestid"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

type application struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *service.MetricsService
	tokens     *service.TokenService
	registry   *service.WorkspaceRegistry
	periods    *service.PeriodService
	grades     *service.GradeService
	bulletins  *service.BulletinService
	dashboards *service.DashboardService
	exports    *service.ExportService
	probes     map[string]handler.Probe
}

func (a *application) router() *gin.Engine {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.WithResponseMeta())

	health := handler.NewHealthHandler(a.probes)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	periods := handler.NewPeriodHandler(a.periods, nil)
	grades := handler.NewGradeHandler(a.grades)
	bulletins := handler.NewBulletinHandler(a.bulletins, nil)
	dashboards := handler.NewDashboardHandler(a.dashboards, a.exports, nil)

	api := r.Group(a.cfg.APIPrefix)
	api.Use(middleware.JWT(a.tokens), middleware.Workspace(a.registry))

	api.GET("/dashboard", dashboards.Dashboard)
	api.GET("/students/:id/stats", dashboards.StudentStats)
	api.GET("/students/:id/report", dashboards.StudentReport)

	api.GET("/periods/relevant", periods.Relevant)
	management := api.Group("", middleware.RequireManagement())
	management.POST("/periods/:id/publish", periods.Publish)
	management.POST("/periods/:id/unpublish", periods.Unpublish)
	management.GET("/bulletins/overview", bulletins.Overview)

	staff := api.Group("", middleware.RequireStaff())
	staff.POST("/grades", grades.Create)
	staff.PATCH("/grades/:id", grades.Update)
	staff.GET("/bulletins/classes", bulletins.Classes)
	staff.GET("/bulletins/classes/:classId/stats", bulletins.ClassStats)
	staff.POST("/bulletins/classes/:classId/validate", bulletins.ValidateClass)
	staff.GET("/bulletins/students/:studentId", bulletins.Student)
	staff.POST("/bulletins/students/:studentId/validate", bulletins.ValidateStudent)
	staff.POST("/bulletins/comments", bulletins.SaveComment)
	staff.POST("/bulletins/comments/:id/validate", bulletins.ValidateComment)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})
	return r
}

// readinessProbes checks the optional backends that were configured.
func readinessProbes(redisClient *redis.Client, db *sqlx.DB) map[string]handler.Probe {
	probes := map[string]handler.Probe{}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if db != nil {
		probes["postgres"] = db.PingContext
	}
	return probes
}
