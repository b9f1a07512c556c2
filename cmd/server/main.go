package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"townhall/internal/config"
	"townhall/internal/db"
	"townhall/internal/router"
	"townhall/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading env vars from system")
	}
	cfg := config.Load()

	// Initialize Database
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// 对象存储，未配置时不开放上传
	var store services.MediaStore
	var mediaService *services.MediaService
	if cfg.MediaEnabled() {
		minioStore, err := services.NewMinioStore(ctx, services.MinioConfig{
			Endpoint:  cfg.MediaEndpoint,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
			Bucket:    cfg.MediaBucket,
			UseSSL:    cfg.MediaUseSSL,
			PublicURL: cfg.MediaPublicURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize media store: %v", err)
		}
		store = minioStore
		mediaService = services.NewMediaService(database, store)
	} else {
		log.Println("MEDIA_ENDPOINT not set, media uploads are disabled")
	}

	var identity services.IdentityProvider
	if cfg.IdentityEnabled() {
		identity = services.NewManagementClient(services.IdentityConfig{
			BaseURL:      cfg.IdPBaseURL,
			TokenURL:     cfg.IdPTokenURL,
			ClientID:     cfg.IdPClientID,
			ClientSecret: cfg.IdPClientSecret,
			Audience:     cfg.IdPAudience,
		})
	} else {
		log.Println("IDP_BASE_URL not set, account deletion only removes local data")
	}

	r := router.New(router.Deps{
		DB:             database,
		Posts:          services.NewPostService(database, store),
		Feed:           services.NewFeedService(database),
		Comments:       services.NewCommentService(database),
		Polls:          services.NewPollService(database),
		Media:          mediaService,
		Users:          services.NewUserService(database, store, identity),
		Reports:        services.NewReportService(database),
		AdminToken:     cfg.AdminToken,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Townhall server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Server exiting")
}
