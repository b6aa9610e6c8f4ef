package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/rollbook/rollbook-api/internal/middleware"
	"github.com/rollbook/rollbook-api/internal/models"
	"github.com/rollbook/rollbook-api/internal/service"
	"github.com/rollbook/rollbook-api/pkg/config"
	"github.com/rollbook/rollbook-api/pkg/logger"
	corsmiddleware "github.com/rollbook/rollbook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rollbook/rollbook-api/pkg/middleware/requestid"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Semesters  *SemesterHandler
	Students   *StudentHandler
	Attendance *AttendanceHandler
	Reports    *ReportHandler
	Public     *PublicHandler
}

// NewRouter assembles the gin engine with all middleware and routes.
func NewRouter(cfg *config.Config, logr *zap.Logger, authService *service.AuthService, metricsService *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)

		auth.POST("/logout", middleware.JWT(authService), h.Auth.Logout)
		auth.GET("/me", middleware.JWT(authService), h.Auth.Me)
		auth.POST("/change-password", middleware.JWT(authService), h.Auth.ChangePassword)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	users := protected.Group("/users")
	{
		users.GET("", adminOnly, h.Users.List)
		users.POST("", adminOnly, h.Users.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Users.Get)
		users.PUT("/:id", adminOnly, h.Users.Update)
		users.DELETE("/:id", adminOnly, h.Users.Deactivate)
		users.POST("/:id/approve", adminOnly, h.Users.Approve)
		users.POST("/:id/reset-password", adminOnly, h.Auth.AdminResetPassword)
	}

	semesters := protected.Group("/semesters")
	{
		semesters.GET("", h.Semesters.List)
		semesters.GET("/:id", h.Semesters.Get)
		semesters.POST("", adminOnly, h.Semesters.Create)
		semesters.PUT("/:id", adminOnly, h.Semesters.Update)
		semesters.DELETE("/:id", adminOnly, h.Semesters.Delete)
		semesters.GET("/:id/students", h.Students.Roster)
		semesters.POST("/:id/students/export", h.Students.ExportRoster)
	}

	students := protected.Group("/students")
	{
		students.GET("", h.Students.List)
		students.GET("/:id", h.Students.Get)
		students.POST("", adminOnly, h.Students.Create)
		students.PUT("/:id", adminOnly, h.Students.Update)
		students.DELETE("/:id", adminOnly, h.Students.Delete)
		students.POST("/import", adminOnly, h.Students.Import)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.GET("", h.Attendance.DaySheet)
		attendance.POST("", h.Attendance.Submit)
		attendance.GET("/copy-previous", h.Attendance.CopyPrevious)
		attendance.DELETE("", h.Attendance.Delete)
	}

	reports := protected.Group("/reports")
	{
		reports.GET("/summary", h.Reports.Summary)
		reports.GET("/students/:id/matrix", h.Reports.Matrix)
		reports.POST("/export", h.Reports.Export)
	}

	// Signed tokens carry their own authorization.
	api.GET("/reports/download", h.Reports.Download)

	if cfg.PublicReport.Enabled {
		public := api.Group("/public")
		public.Use(middleware.AccessCode(cfg.PublicReport.AccessCode))
		{
			public.GET("/semesters", h.Public.Semesters)
			public.GET("/report", h.Public.StudentReport)
			public.GET("/reports/summary", h.Public.Summary)
			public.GET("/reports/students/:id/matrix", h.Public.Matrix)
		}
	}

	return r
}
