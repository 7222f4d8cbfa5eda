package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/config"
	"github.com/cppla/socialbbs/controllers"
	"github.com/cppla/socialbbs/middleware"
	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, db *gorm.DB, svc *services.Services, tokens *utils.TokenManager) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file; fall back to the app logger.
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("access log disabled: %v", err)
		}
	}
	r.Use(middleware.RequestLogger(accessLog))
	r.Use(middleware.Recovery(utils.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.PageViewRecorder(db))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(svc.Identity, controllers.AuthOptions{
		CaptchaEnabled:    cfg.RegisterCaptchaEnabled,
		MaxRegisterPerDay: cfg.RegisterMaxPerIPPerDay,
		ResetCooldown:     time.Duration(cfg.ResetCooldownSec) * time.Second,
	})
	checkInController := controllers.NewCheckInController(svc.Identity)
	postController := controllers.NewPostController(svc.Content)
	messageController := controllers.NewMessageController(svc.Messaging)
	groupController := controllers.NewGroupController(svc.Groups)
	searchController := controllers.NewSearchController(svc.Search)
	fileController := controllers.NewFileController(svc.Files, int64(cfg.MaxUploadMB)<<20)
	statsController := controllers.NewStatsController(db, svc.Identity)

	authRequired := middleware.AuthRequired(tokens)
	limit := middleware.RateLimit(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/forgot-password", authController.ForgotPassword)
	authGroup.POST("/reset-password", authController.ResetPassword)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PATCH("/profile", authRequired, authController.UpdateProfile)

	// Public reads
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/posts/:id/stats", statsController.GetPostStats)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/users/:id/posts", postController.ListUserPosts)
	api.GET("/online", statsController.OnlineUsers)
	api.GET("/stats", statsController.GetStats)
	api.GET("/groups", groupController.List)
	api.GET("/groups/:id", groupController.Get)
	api.GET("/groups/:id/members", groupController.Members)
	api.GET("/search", searchController.Search)
	api.GET("/files/:id", fileController.Download)

	protected := api.Group("")
	protected.Use(authRequired, limit)
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.DELETE("/comments/:commentId", postController.DeleteComment)

	protected.POST("/checkin", checkInController.CheckIn)
	protected.GET("/checkin/status", checkInController.Status)
	protected.POST("/upgrade", checkInController.Upgrade)

	protected.POST("/messages", messageController.Send)
	protected.GET("/messages", messageController.List)
	protected.POST("/messages/:id/read", messageController.MarkRead)
	protected.GET("/notifications", messageController.Notifications)
	protected.POST("/notifications/:id/read", messageController.MarkNotificationRead)

	protected.POST("/groups", groupController.Create)
	protected.POST("/groups/:id/join", groupController.Join)
	protected.POST("/groups/:id/leave", groupController.Leave)
	protected.GET("/me/groups", groupController.Mine)

	protected.POST("/files", fileController.Upload)
	protected.GET("/me/files", fileController.Mine)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
