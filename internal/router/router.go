package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	Proctoring    *handler.ProctoringHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	rdb *redis.Client,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderDeviceFingerprint}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(logger.RequestLogger(log))

	// Health check.
	router.GET("/health", handlers.System.Health)

	authenticate := middleware.Authenticate(authService)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(rdb, "auth", cfg.AuthRateLimit, time.Minute, log)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/register", handlers.Auth.StudentRegister)
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/register", handlers.Auth.AdminRegister)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.GET("/me", authenticate, middleware.CheckSingleDeviceSession(authService), handlers.Auth.Me)
		auth.POST("/student/logout",
			authenticate,
			middleware.RequireRole(model.RoleStudent),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.StudentLogout,
		)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		authenticate,
		middleware.RequireRole(model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
		middleware.VerifyDevice(authService),
	)
	{
		studentAPI.GET("/exams", handlers.StudentPortal.ListAvailableExams)
		studentAPI.POST("/exams/:exam_id/start", handlers.StudentPortal.StartExam)
		studentAPI.POST("/exams/:exam_id/answers", handlers.StudentPortal.SubmitAnswer)
		studentAPI.POST("/exams/:exam_id/submit", handlers.StudentPortal.SubmitExam)
		studentAPI.GET("/exams/:exam_id/state", handlers.StudentPortal.GetExamState)
		studentAPI.GET("/exams/:exam_id/camera-checks", handlers.StudentPortal.ListPendingCameraChecks)
		studentAPI.POST("/camera-checks/:id/result", handlers.StudentPortal.CompleteCameraCheck)
		studentAPI.POST("/fraud-events", handlers.StudentPortal.ReportFraudEvent)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		authenticate,
		middleware.RequireRole(model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
		middleware.VerifyDevice(authService),
	)
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 4. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		authenticate,
		middleware.RequireRole(model.RoleAdmin),
		middleware.Brotli(),
	)
	{
		// Exam management
		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:id", handlers.Exam.GetExam)
		adminAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		adminAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)

		// Question management
		adminAPI.GET("/exams/:id/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/exams/:id/questions", handlers.Question.AddQuestion)
		adminAPI.POST("/exams/:id/questions/bulk", handlers.Question.BulkAddQuestions)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		// Student management
		adminAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		adminAPI.GET("/students/:id", handlers.StudentMgmt.GetStudent)
		adminAPI.GET("/students/:id/security-logs", handlers.StudentMgmt.GetSecurityLogs)

		// Session review
		adminAPI.GET("/sessions/:id", handlers.Proctoring.GetSession)
		adminAPI.GET("/sessions/:id/camera-checks", handlers.Proctoring.ListCameraChecks)
		adminAPI.POST("/sessions/:id/camera-checks", handlers.Proctoring.RequestCameraCheck)
		adminAPI.GET("/sessions/:id/integrity-report", handlers.Proctoring.GetIntegrityReport)
		adminAPI.POST("/analyze-answer", handlers.Proctoring.AnalyzeAnswer)

		// Live monitoring
		adminAPI.GET("/fraud-alerts", handlers.Monitor.FraudAlerts)
		adminAPI.GET("/monitor/live", handlers.Monitor.LiveSessions)
		adminAPI.GET("/monitor/stream", handlers.Monitor.MonitorSSE)

		// System Monitoring
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
