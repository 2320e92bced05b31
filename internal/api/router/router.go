package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendease/backend/config"
	"attendease/backend/internal/api/handler"
	"attendease/backend/internal/api/middleware"
	"attendease/backend/internal/model"
	"attendease/backend/pkg/jwt"
	"attendease/backend/pkg/redis"
)

// 登录/注册接口的限流参数，防止撞库与验证码暴力枚举
const (
	authRateLimit    = 10
	authRateWindow   = time.Minute
	checkInRateLimit = 30
	maxBodyBytes     = 1 << 20 // 1MB
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, authRateLimit, authRateWindow))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 学生端看板
			authorized.GET("/dashboard", h.Report.GetMyDashboard)

			// 课程模块
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.ListCourses)
				courses.GET("/mine", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Course.ListMyCourses)
				courses.GET("/:id", h.Course.GetCourse)
				courses.POST("", middleware.RoleAuth(model.RoleAdmin), h.Course.CreateCourse)
				courses.POST("/:id/enroll", middleware.RoleAuth(model.RoleStudent), h.Course.Enroll)
				courses.GET("/:id/roster", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Course.GetRoster)

				// 排课（Service 层校验课程归属）
				courses.POST("/:id/sessions/generate", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Session.GenerateSessions)
				courses.POST("/:id/sessions", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Session.CreateSession)
				courses.GET("/:id/sessions", h.Session.ListSessions)

				// 统计分析
				courses.GET("/:id/reports", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Report.GetCourseReport)
				courses.GET("/:id/reports/weekly", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Report.GetWeeklyRates)
				courses.GET("/:id/reports/approval", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Report.GetApprovalRate)
				courses.GET("/:id/reports/risk", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Report.GetRiskReport)
				courses.GET("/:id/reports/students/:student_id", h.Report.GetStudentReport)

				// 导出
				courses.GET("/:id/export/roster", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Export.ExportRoster)
				courses.GET("/:id/export/risk", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Export.ExportRisk)
				courses.GET("/:id/export/calendar", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Export.ExportCalendar)
			}

			// 课次模块
			sessions := authorized.Group("/sessions")
			{
				sessions.PUT("/:id/status", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Session.SetSessionStatus)
				sessions.PUT("/:id/date", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Session.RescheduleSession)
				sessions.PUT("/:id/voting", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Session.ToggleVoting)
				sessions.GET("/:id/live", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Report.GetLiveStat)

				// 考勤台账
				sessions.POST("/:id/check-in", middleware.RoleAuth(model.RoleStudent), middleware.RateLimit(rdb, checkInRateLimit, authRateWindow), h.Attendance.CheckIn)
				sessions.PUT("/:id/attendance", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Attendance.SetStatus)
				sessions.GET("/:id/attendance", middleware.RoleAuth(model.RoleInstructor, model.RoleAdmin), h.Attendance.GetSessionRoster)

				// 请假 / 申诉 / 投票
				sessions.POST("/:id/evidence", middleware.RoleAuth(model.RoleStudent), h.Attendance.SubmitEvidence)
				sessions.POST("/:id/appeal", middleware.RoleAuth(model.RoleStudent), h.Attendance.FileAppeal)
				sessions.POST("/:id/vote", middleware.RoleAuth(model.RoleStudent), h.Attendance.CastVote)
			}
		}
	}

	return r
}
