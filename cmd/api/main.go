package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghibli-paint/backend/internal/config"
	"github.com/ghibli-paint/backend/internal/handlers"
	"github.com/ghibli-paint/backend/internal/middleware"
	"github.com/ghibli-paint/backend/internal/models"
	"github.com/ghibli-paint/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	authService := services.NewAuthService(db, redisClient, cfg)
	storageService := services.NewStorageService(cfg.GeneratedImagesPath)
	stabilityClient := services.NewStabilityClient(cfg)
	imageService := services.NewImageService(db, storageService, stabilityClient)
	userService := services.NewUserService(db, imageService)

	// Periodic cleanup of expired refresh tokens
	go func() {
		for {
			if err := authService.CleanupExpiredTokens(); err != nil {
				log.Printf("Refresh token cleanup error: %v", err)
			}
			time.Sleep(1 * time.Hour)
		}
	}()

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	imageHandler := handlers.NewImageHandler(imageService, storageService)
	userHandler := handlers.NewUserHandler(userService)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup routes
	api := router.Group("/api")
	{
		// Catch-all OPTIONS handler for CORS preflight requests
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.Auth(authService), authHandler.Logout)
		}

		// Image routes
		images := api.Group("/images")
		{
			// Direct file serve by name, no auth (used by the gallery UI)
			images.GET("/serve/:filename", imageHandler.ServeImage)

			authed := images.Group("")
			authed.Use(middleware.Auth(authService))
			{
				authed.POST("/generate/text-to-image", imageHandler.GenerateFromText)
				authed.POST("/generate/image-to-image", imageHandler.GenerateFromImage)
				authed.GET("/gallery", imageHandler.GetGallery)
				authed.GET("/download/:imageId", imageHandler.DownloadImage)
				authed.DELETE("/:imageId", imageHandler.DeleteImage)
			}
		}

		// User routes
		users := api.Group("/users")
		users.Use(middleware.Auth(authService))
		{
			users.GET("/me", userHandler.GetMe)
			users.DELETE("/:userId", userHandler.DeleteAccount)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second, // generation requests block on the upstream call
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
