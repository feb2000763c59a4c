package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/config"
	"github.com/stockbbs/stockbbs/controllers"
	"github.com/stockbbs/stockbbs/middleware"
	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(s store.Store) *gin.Engine {
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
	r.Use(middleware.RequestID())
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
		ExposeHeaders:    []string{"Content-Length", utils.HeaderRequestID},
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
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(s)
	postController := controllers.NewPostController(s)
	commentController := controllers.NewCommentController(s)
	likeController := controllers.NewLikeController(s)
	statsController := controllers.NewStatsController(s)

	r.POST("/register", authController.Register)
	r.POST("/login", authController.Login)
	r.POST("/logout", middleware.AuthRequired(), authController.Logout)
	r.GET("/me", middleware.AuthRequired(), authController.Me)
	r.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)
	r.GET("/users/:id", authController.GetUserPublic)

	r.GET("/posts", postController.ListPosts)
	r.GET("/posts/:id", postController.GetPost)
	r.GET("/posts/:id/comments", commentController.ListComments)
	r.GET("/posts/:id/like", middleware.OptionalAuth(), likeController.GetLikeStatus)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired())
	protected.POST("/posts", postController.CreatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.POST("/posts/:id/like", likeController.ToggleLike)

	r.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "route not found")
	})

	return r
}
