package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/handler"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/middleware"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/response"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/stemsi/admissions-backend/docs" // Swagger docs
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Version      *handler.VersionHandler
	QuestionBank *handler.QuestionBankHandler
	EnrolmentKey *handler.EnrolmentKeyHandler
	Student      *handler.StudentHandler
	Monitor      *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	studentLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set; otherwise allow all so dev
	// works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())

	// ─── Infrastructure ────────────────────────────────────────────────
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── 1. Enrolment Key Group (Public, Rate Limited) ─────────────────
	keys := router.Group("/api/v1/keys/:key")
	keys.Use(studentLimiter.Middleware(), middleware.NoStore())
	{
		keys.GET("/questions", handlers.EnrolmentKey.GetQuestions)
		keys.POST("/answers", handlers.EnrolmentKey.RecordAnswers)
		keys.GET("/status", handlers.EnrolmentKey.GetStatus)
	}

	// ─── 2. Auth Group ─────────────────────────────────────────────────
	authAPI := router.Group("/api/v1/auth")
	{
		authAPI.POST("/admin/login", studentLimiter.Middleware(), handlers.Auth.AdminLogin)
		authAPI.GET("/admin/me", middleware.RequireAdminJWT(auth), handlers.Auth.GetAdminProfile)
	}

	// ─── 3. WebSocket Group (Admin token via query) ────────────────────
	ws := router.Group("/ws/v1/admin")
	ws.Use(middleware.RequireAdminJWT(auth), middleware.RequirePermission(model.PermissionMonitorRead))
	{
		ws.GET("/monitor", handlers.Monitor.MonitorStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(auth))
	{
		// Test versions
		adminAPI.POST("/versions",
			middleware.RequirePermission(model.PermissionVersionsPublish),
			handlers.Version.PublishVersion,
		)
		adminAPI.GET("/versions",
			middleware.RequirePermission(model.PermissionVersionsRead),
			handlers.Version.ListVersions,
		)
		adminAPI.GET("/versions/current",
			middleware.RequirePermission(model.PermissionVersionsRead),
			handlers.Version.CurrentVersion,
		)
		adminAPI.GET("/versions/:id",
			middleware.RequirePermission(model.PermissionVersionsRead),
			handlers.Version.GetVersion,
		)
		adminAPI.GET("/versions/:id/questions",
			middleware.RequirePermission(model.PermissionVersionsRead),
			handlers.Version.ResolveVersion,
		)

		// Reports
		adminAPI.GET("/versions/:id/report",
			middleware.RequirePermission(model.PermissionReportsRead),
			handlers.Version.VersionReport,
		)
		adminAPI.GET("/versions/:id/report.xlsx",
			middleware.RequirePermission(model.PermissionReportsRead),
			handlers.Version.ExportVersionReport,
		)
		adminAPI.GET("/metrics",
			middleware.RequirePermission(model.PermissionReportsRead),
			handlers.Monitor.ListMetrics,
		)
		adminAPI.GET("/monitor/snapshot",
			middleware.RequirePermission(model.PermissionMonitorRead),
			handlers.Monitor.Snapshot,
		)

		// Question bank
		bank := adminAPI.Group("")
		bank.Use(middleware.RequirePermission(model.PermissionQuestionsWrite))
		{
			bank.POST("/passages", handlers.QuestionBank.CreatePassage)
			bank.PUT("/passages/:id", handlers.QuestionBank.UpdatePassage)
			bank.POST("/questions", handlers.QuestionBank.AddQuestion)
			bank.GET("/questions/:id", handlers.QuestionBank.GetQuestion)
			bank.POST("/buckets", handlers.QuestionBank.CreateBucket)
			bank.POST("/buckets/:id/choices", handlers.QuestionBank.AddChoice)
		}

		// Students
		adminAPI.POST("/students",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.Student.CreateStudent,
		)
		adminAPI.GET("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsRead),
			handlers.Student.GetStudent,
		)
		adminAPI.POST("/students/:id/keys",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.Student.GenerateKey,
		)
		adminAPI.GET("/students/:id/transitions",
			middleware.RequirePermission(model.PermissionStudentsRead),
			handlers.Student.ListTransitions,
		)
		adminAPI.POST("/students/:id/transitions",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.Student.Transition,
		)
	}

	return router
}
