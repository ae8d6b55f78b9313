package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/handlers"
	"github.com/openshelf/openshelf-backend/internal/middleware"
)

type RouterConfig struct {
	Identity              *middleware.IdentityMiddleware
	BookHandler           *handlers.BookHandler
	CategoryHandler       *handlers.CategoryHandler
	ReviewHandler         *handlers.ReviewHandler
	LibraryHandler        *handlers.LibraryHandler
	PlaylistHandler       *handlers.PlaylistHandler
	RecommendationHandler *handlers.RecommendationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.GET("/books/search", cfg.BookHandler.Search)
		api.GET("/books/trending", cfg.BookHandler.Trending)
		api.GET("/books/subject/:subject", cfg.BookHandler.BySubject)
		api.GET("/books/:id", cfg.BookHandler.GetByID)
		api.GET("/books/:id/reviews", cfg.ReviewHandler.ListByBook)
		api.GET("/categories", cfg.CategoryHandler.List)
		api.GET("/categories/:id/books", cfg.CategoryHandler.Books)
		api.GET("/playlists/:id/books", cfg.PlaylistHandler.Books)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.Identity.RequireUser())
	// Reviews
	protected.POST("/reviews", cfg.ReviewHandler.Create)
	protected.PUT("/reviews/:id", cfg.ReviewHandler.Update)
	protected.DELETE("/reviews/:id", cfg.ReviewHandler.Delete)
	// Library
	protected.GET("/library", cfg.LibraryHandler.List)
	protected.POST("/library/:bookId", cfg.LibraryHandler.Save)
	protected.DELETE("/library/:bookId", cfg.LibraryHandler.Unsave)
	// Playlists
	protected.POST("/playlists", cfg.PlaylistHandler.Create)
	protected.GET("/playlists", cfg.PlaylistHandler.List)
	protected.POST("/playlists/:id/books", cfg.PlaylistHandler.AddBook)
	protected.DELETE("/playlists/:id/books/:bookId", cfg.PlaylistHandler.RemoveBook)
	// Recommendations
	protected.GET("/recommendations", cfg.RecommendationHandler.GetRecommendations)

	return router
}
