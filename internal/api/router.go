package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "scifind-backend/docs"
	"scifind-backend/internal/api/handlers"
	"scifind-backend/internal/api/middleware"
	"scifind-backend/internal/session"
)

// NewRouter wires C9's §6 HTTP surface onto C1-C8 via handlers.Core, mounting every
// non-auth route behind middleware.RequireSession.
func NewRouter(core *handlers.Core, gateway *session.Gateway, healthHandler *handlers.HealthHandler, logger *slog.Logger) *gin.Engine {
	if gin.Mode() == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CorsMiddleware(middleware.DefaultCorsConfig()))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.StructuredLoggingMiddleware(logger))
	router.Use(gin.Recovery())

	healthHandler.RegisterRoutes(router)

	authHandler := handlers.NewAuthHandler(core)
	papersHandler := handlers.NewPapersHandler(core)
	profileHandler := handlers.NewProfileHandler(core)
	feedbackHandler := handlers.NewFeedbackHandler(core)
	foldersHandler := handlers.NewFoldersHandler(core)
	followsHandler := handlers.NewFollowsHandler(core)
	entitySearchHandler := handlers.NewEntitySearchHandler(core)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.GET("/login", authHandler.Login)
			auth.GET("/callback", authHandler.Callback)
			auth.GET("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.GET("/me", authHandler.Me)
		}

		authenticated := api.Group("")
		authenticated.Use(middleware.RequireSession(gateway))
		{
			papers := authenticated.Group("/papers")
			{
				papers.GET("/search", papersHandler.Search)
				papers.GET("/search/query", papersHandler.SearchQuery)
				papers.GET("/bulk/by-ids", papersHandler.BulkByIDs)
				papers.GET("/recommendations", papersHandler.Recommendations)
				papers.GET("/parse-query", papersHandler.ParseQuery)
				papers.GET("/:paperId/similar", papersHandler.Similar)
				papers.GET("/:paperId", papersHandler.GetByID)
			}

			profile := authenticated.Group("/profile")
			{
				profile.GET("", profileHandler.Get)
				profile.PUT("", profileHandler.Put)
				profile.DELETE("", profileHandler.Delete)
			}

			feedback := authenticated.Group("/feedback")
			{
				feedback.GET("", feedbackHandler.Get)
				feedback.POST("/like", feedbackHandler.Like)
				feedback.DELETE("/like/:paperId", feedbackHandler.Unlike)
				feedback.POST("/dislike", feedbackHandler.Dislike)
				feedback.DELETE("/dislike/:paperId", feedbackHandler.Undislike)
				feedback.DELETE("", feedbackHandler.ClearAll)
				feedback.DELETE("/liked", feedbackHandler.ClearLiked)
				feedback.DELETE("/disliked", feedbackHandler.ClearDisliked)
			}

			folders := authenticated.Group("/folders")
			{
				folders.GET("", foldersHandler.List)
				folders.POST("", foldersHandler.Create)
				folders.GET("/:folderId", foldersHandler.Get)
				folders.DELETE("/:folderId", foldersHandler.Delete)
				folders.POST("/:folderId/papers", foldersHandler.AddPaper)
				folders.DELETE("/:folderId/papers/:paperId", foldersHandler.RemovePaper)
			}

			follows := authenticated.Group("/follows")
			{
				follows.GET("", followsHandler.List)
				follows.POST("", followsHandler.Create)
				follows.GET("/papers", followsHandler.Papers)
				follows.DELETE("/:type/:entityId", followsHandler.Delete)
			}

			authenticated.GET("/entity-search/:kind", entitySearchHandler.Search)
		}
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "SciFIND Backend",
			"version": "1.0.0",
			"status":  "running",
			"docs":    "/swagger/index.html",
			"health":  "/health",
		})
	})

	return router
}
