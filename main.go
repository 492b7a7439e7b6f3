package main

import (
	"context"
	"fmt"
	"log"

	"clouddrive/config"
	"clouddrive/database"
	"clouddrive/handlers"
	"clouddrive/middleware"
	"clouddrive/models"
	"clouddrive/repositories"
	"clouddrive/services"
	"clouddrive/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("starting clouddrive service")

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	if err := database.InitMySQL(&cfg.Database); err != nil {
		log.Fatalf("init mysql failed: %v", err)
	}

	database.DB.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.FileVersion{},
		&models.Share{},
		&models.UserQuota{},
	)
	log.Println("database migration completed")

	if err := database.InitRedis(&cfg.Redis); err != nil {
		log.Fatalf("init redis failed: %v", err)
	}

	blob, err := storage.NewS3Store(context.Background(), &cfg.Storage)
	if err != nil {
		log.Fatalf("init object storage failed: %v", err)
	}

	repoContainer := repositories.NewGormRepositories(database.DB, database.RedisClient).BuildContainer()
	serviceContainer := services.NewContainer(repoContainer, blob)
	handlers.SetServices(serviceContainer)

	serviceContainer.Cleanup.Start()
	log.Println("cleanup workers started")

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestLogger())
	setupRoutes(r, repoContainer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("server listening on http://%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server start failed: %v", err)
	}
}

func setupRoutes(r *gin.Engine, repos repositories.Container) {
	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.GET("/google", handlers.GoogleLogin)
		auth.GET("/google/callback", handlers.GoogleCallback)
	}

	// Public link resolution, the plan catalog and the billing webhook are
	// unauthenticated.
	api.GET("/public/:token", handlers.ResolvePublicLink)
	api.GET("/billing/prices", handlers.ListPlans)
	api.POST("/billing/webhook", handlers.StripeWebhook)

	// Browsers cannot set headers on websocket requests; the handler
	// validates the token itself.
	api.GET("/ws", handlers.EventStream)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(repos.Blacklist))
	{
		protected.POST("/auth/logout", handlers.Logout)
		protected.GET("/auth/me", handlers.GetProfile)
		protected.GET("/user/quota", handlers.GetQuota)

		protected.GET("/files", handlers.ListFiles)
		protected.POST("/files/upload", handlers.UploadFile)
		protected.POST("/files/folders", handlers.CreateFolder)
		protected.PATCH("/files/:id", handlers.PatchFile)
		protected.DELETE("/files/:id", handlers.DeleteFile)
		protected.DELETE("/files/:id/permanent", handlers.PermanentDeleteFile)
		protected.POST("/files/:id/restore", handlers.RestoreFile)
		protected.GET("/files/:id/download", handlers.DownloadFile)
		protected.GET("/files/:id/thumbnail", handlers.GetThumbnail)

		protected.POST("/files/:id/versions", handlers.UploadVersion)
		protected.GET("/files/:id/versions", handlers.ListVersions)
		protected.POST("/files/:id/versions/:number/restore", handlers.RestoreVersion)

		protected.POST("/files/:id/share", handlers.CreateShare)
		protected.DELETE("/files/:id/shares/:shareId", handlers.RevokeShare)
		protected.POST("/files/:id/public", handlers.CreatePublicLink)
		protected.DELETE("/files/:id/public", handlers.RevokePublicLink)
		protected.DELETE("/public/:token", handlers.RevokePublicLinkByToken)

		protected.GET("/shares/shared-with-me", handlers.ListSharedWithMe)
		protected.GET("/shares/shared-by-me", handlers.ListSharedByMe)

		protected.POST("/billing/checkout", handlers.CreateCheckout)
	}
}
