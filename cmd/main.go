package main

import (
	"fmt"
	"os"
	"time"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/clients/openlibrary"
	"github.com/openshelf/openshelf-backend/internal/db"
	"github.com/openshelf/openshelf-backend/internal/handlers"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/middleware"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/server"
	"github.com/openshelf/openshelf-backend/internal/services"
	"github.com/openshelf/openshelf-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	searchTTL := utils.GetEnvAsInt("SEARCH_CACHE_TTL", 600, log)
	bookTTL := utils.GetEnvAsInt("BOOK_CACHE_TTL", 3600, log)
	listTTL := utils.GetEnvAsInt("LIST_CACHE_TTL", 1800, log)
	prefsTTL := utils.GetEnvAsInt("PREFERENCES_CACHE_TTL", 7200, log)
	recsTTL := utils.GetEnvAsInt("RECOMMENDATIONS_CACHE_TTL", 3600, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	reviewRepo := repos.NewReviewRepo(thePG, log)
	savedBookRepo := repos.NewSavedBookRepo(thePG, log)
	playlistRepo := repos.NewPlaylistRepo(thePG, log)
	categoryRepo := repos.NewCategoryRepo(thePG, log)

	// Cache
	log.Info("Setting up cache store from main...")
	store := cache.NewRedisStore(log)

	// Open Library client
	olClient, err := openlibrary.NewClient(log)
	if err != nil {
		log.Error("Could not init Open Library client", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	catalogCfg := services.DefaultCatalogConfig()
	catalogCfg.SearchTTL = time.Duration(searchTTL) * time.Second
	catalogCfg.BookTTL = time.Duration(bookTTL) * time.Second
	catalogCfg.BookDetailTTL = time.Duration(bookTTL) * time.Second
	catalogService := services.NewCatalogService(log, store, olClient, catalogCfg)

	ratingService := services.NewRatingService(thePG, log, store, reviewRepo, time.Duration(listTTL)*time.Second)

	prefCfg := services.DefaultPreferenceConfig()
	prefCfg.TTL = time.Duration(prefsTTL) * time.Second
	preferenceService := services.NewPreferenceService(thePG, log, store, catalogService, savedBookRepo, reviewRepo, prefCfg)

	recCfg := services.DefaultRecommendationConfig()
	recCfg.ResultTTL = time.Duration(recsTTL) * time.Second
	recommendationService := services.NewRecommendationService(thePG, log, store, catalogService, preferenceService, ratingService, savedBookRepo, reviewRepo, recCfg)

	invalidationService := services.NewInvalidationService(thePG, log, store, savedBookRepo, playlistRepo)
	reviewService := services.NewReviewService(thePG, log, userRepo, reviewRepo, catalogService, invalidationService)
	libraryService := services.NewUserLibraryService(thePG, log, store, savedBookRepo, catalogService, ratingService, invalidationService, time.Duration(listTTL)*time.Second)
	playlistService := services.NewPlaylistService(thePG, log, store, playlistRepo, catalogService, ratingService, invalidationService, time.Duration(listTTL)*time.Second)
	categoryService := services.NewCategoryService(thePG, log, categoryRepo, catalogService)

	// Handlers
	log.Info("Setting up handlers from main...")
	bookHandler := handlers.NewBookHandler(catalogService, ratingService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	libraryHandler := handlers.NewLibraryHandler(libraryService)
	playlistHandler := handlers.NewPlaylistHandler(playlistService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)

	// Middleware
	log.Info("Setting up middleware from main...")
	identity := middleware.NewIdentityMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Identity:              identity,
		BookHandler:           bookHandler,
		CategoryHandler:       categoryHandler,
		ReviewHandler:         reviewHandler,
		LibraryHandler:        libraryHandler,
		PlaylistHandler:       playlistHandler,
		RecommendationHandler: recommendationHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
