package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/handler"
	"github.com/invigil/invigil-backend/internal/middleware"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/response"
	"github.com/invigil/invigil-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam       *handler.ExamHandler
	Proctoring *handler.ProctoringHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Starting a monitoring run spawns a worker; keep it rate limited.
	proctoringLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Session and Catalog (JWT) ─────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))
	{
		api.GET("/get-exams", handlers.Exam.GetExams)
		api.GET("/get-exams/:exam_id", handlers.Exam.GetExamByID)
		api.POST("/start-exam/:exam_id", handlers.Exam.StartExam)
		api.POST("/submit-exam", handlers.Exam.SubmitExam)

		staff := api.Group("")
		staff.Use(middleware.RequireRole(model.RoleTeacher, model.RoleExaminer))
		{
			staff.POST("/evaluate-exam", handlers.Exam.EvaluateExam)
			staff.GET("/get-submission/:exam_id/:user_email", handlers.Exam.GetSubmission)
		}
	}

	// ─── 2. Proctoring (JWT + Staff Roles) ────────────────────────────
	proctorAPI := router.Group("/api/v1")
	proctorAPI.Use(
		middleware.RequireJWT(authService),
		middleware.RequireRole(model.RoleProctor, model.RoleExaminer, model.RoleTeacher),
	)
	{
		// Starting and stopping runs is reserved for proctors; examiners
		// and teachers get read access plus manual log entries.
		proctorOnly := middleware.RequireRole(model.RoleProctor)
		proctorAPI.POST("/start-proctoring", proctorOnly, proctoringLimiter.Middleware(), handlers.Proctoring.StartProctoring)
		proctorAPI.POST("/log-malpractice", handlers.Proctoring.LogMalpractice)
		proctorAPI.POST("/stop-exam/:exam_id/:student_id", proctorOnly, handlers.Proctoring.StopExam)
		proctorAPI.GET("/proctoring-logs", handlers.Proctoring.GetLogs)
		proctorAPI.GET("/download-report/:student_id/:exam_id", handlers.Proctoring.DownloadReport)
	}

	// ─── 3. WebSocket Group (token via query param) ───────────────────
	ws := router.Group("/ws")
	ws.Use(middleware.RequireJWT(authService))
	{
		ws.GET("/proctoring-stream/:exam_id/:student_id", handlers.WS.ProctoringStream)
	}

	return router
}
