package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/config"
	"github.com/snapfactor/snapfactor/controllers"
	"github.com/snapfactor/snapfactor/middleware"
	"github.com/snapfactor/snapfactor/rag"
	"github.com/snapfactor/snapfactor/storage"
	"github.com/snapfactor/snapfactor/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, media *storage.MediaStore, aiClient *ai.Client, ragStore *rag.Store) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	friendController := controllers.NewFriendController(db)
	snapController := controllers.NewSnapController(db, media)
	storyController := controllers.NewStoryController(db, media)
	chatController := controllers.NewChatController(db)
	challengeController := controllers.NewChallengeController(db, aiClient)
	tutorController := controllers.NewTutorController(db, aiClient, ragStore, media)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/send-email-code", authController.SendEmailCode)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public endpoints
	api.GET("/stats", statsController.GetStats)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/user/by-username/:username", authController.GetUserPublicByUsername)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.PresenceRecorder(db))

	protected.GET("/users", authController.ListUsers)

	protected.POST("/friends/requests", friendController.SendRequest)
	protected.POST("/friends/requests/:id/accept", friendController.Accept)
	protected.POST("/friends/requests/:id/reject", friendController.Reject)
	protected.DELETE("/friends/:id", friendController.Remove)
	protected.GET("/friends", friendController.ListFriends)
	protected.GET("/friends/pending", friendController.ListPending)

	protected.POST("/snaps", snapController.Send)
	protected.GET("/snaps/inbox", snapController.Inbox)
	protected.GET("/snaps/sent", snapController.Sent)
	protected.POST("/snaps/:id/open", snapController.Open)
	protected.DELETE("/snaps/:id", snapController.Delete)

	protected.POST("/stories", storyController.PostItem)
	protected.GET("/stories/feed", storyController.Feed)
	protected.POST("/stories/:id/view", storyController.View)
	protected.GET("/stories/:id/viewers", storyController.Viewers)

	protected.POST("/chats/messages", chatController.SendMessage)
	protected.GET("/chats", chatController.ListConversations)
	protected.GET("/chats/:id/messages", chatController.ListMessages)
	protected.POST("/chats/:id/read", chatController.MarkRead)

	protected.GET("/challenges/daily", challengeController.GetDaily)
	protected.POST("/challenges/submit", challengeController.Submit)
	protected.GET("/challenges/stats", challengeController.Stats)

	// AI routes get their own rate limit on top of auth
	tutor := protected.Group("/tutor")
	tutor.Use(middleware.RateLimitMiddleware())
	tutor.POST("/explain", tutorController.Explain)
	tutor.POST("/define", tutorController.Define)
	tutor.POST("/explore", tutorController.Explore)
	tutor.POST("/caption", tutorController.Caption)
	tutor.POST("/visual", tutorController.Visual)
	tutor.POST("/snaps/:id/analyze", tutorController.AnalyzeSnap)
	tutor.GET("/history", tutorController.History)
	tutor.DELETE("/history", tutorController.ClearHistory)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
