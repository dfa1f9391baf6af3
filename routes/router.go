package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogthread/config"
	"github.com/cppla/blogthread/controllers"
	"github.com/cppla/blogthread/middleware"
	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/store"
	"github.com/cppla/blogthread/utils"
)

// SetupRouter wires routes, middlewares, and controllers over one store.
func SetupRouter(st store.Store) *gin.Engine {
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
	// Access log goes to its own rolling file.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.GinzapWithConfig(gl, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			SkipPaths:  []string{"/health"},
			Context:    middleware.AccessLogFields,
		}))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Identify(st))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, "ok", gin.H{"status": "ok"})
	})

	commentService := services.NewCommentService(st, utils.Logger)
	postService := services.NewPostService(st, commentService, utils.Logger)

	authController := controllers.NewAuthController(st)
	postController := controllers.NewPostController(postService)
	commentController := controllers.NewCommentController(commentService)
	statsController := controllers.NewStatsController(commentService)

	r.POST("/login", authController.Login)
	r.POST("/logout", authController.Logout)

	posts := r.Group("/posts")
	posts.GET("", postController.ListPosts)
	posts.GET("/:postId", postController.GetPost)
	posts.GET("/:postId/stats", statsController.GetPostStats)
	posts.GET("/:postId/thread", commentController.GetThread)
	posts.GET("/:postId/comments", commentController.ListComments)
	posts.GET("/:postId/comments/:commentId", commentController.GetComment)
	posts.POST("/:postId/comments", commentController.CreateComment)
	posts.POST("/:postId/comments/:commentId", commentController.CreateReply)

	authored := posts.Group("")
	authored.Use(middleware.AuthorRequired())
	authored.POST("", postController.CreatePost)
	authored.PUT("/:postId", postController.UpdatePost)
	authored.DELETE("/:postId", postController.DeletePost)
	authored.PUT("/:postId/comments/:commentId", commentController.UpdateComment)
	authored.DELETE("/:postId/comments/:commentId", commentController.DeleteComment)

	return r
}
