package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"builtf/backend/internal/config"
	"builtf/backend/internal/domain/notifications"
	"builtf/backend/internal/domain/requests"
	"builtf/backend/internal/domain/services"
	"builtf/backend/internal/domain/users"
	"builtf/backend/internal/firebase"
	"builtf/backend/internal/handlers"
	apihttp "builtf/backend/internal/http"
	"builtf/backend/internal/logging"
	"builtf/backend/internal/session"
	"builtf/backend/internal/store"
	"builtf/backend/internal/uploads"
)

func main() {
	logging.Init()
	log := logging.L()
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	cfg := config.Load()

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		log.Fatal("firebase init failed", zap.Error(err))
	}
	defer clients.Close()

	remote := store.NewFirestoreRemote(clients.Firestore)
	sessions := session.NewManager(session.NewFirebaseAuthenticator(clients.Auth, cfg.WebAPIKey))

	// Uploaders: service images go to the bucket, provider images to
	// Cloudinary when it is configured.
	serviceImages := uploads.NewGCS(clients.Storage, cfg.StorageBucket)
	var providerImages store.Uploader
	if cfg.CloudinaryCloudName != "" {
		cld, err := uploads.NewCloudinary(
			cfg.CloudinaryCloudName,
			cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret,
			cfg.CloudinaryUploadPreset,
		)
		if err != nil {
			log.Fatal("cloudinary init failed", zap.Error(err))
		}
		providerImages = cld
	} else {
		log.Info("CLOUDINARY_CLOUD_NAME not set, provider images use the bucket")
		providerImages = serviceImages
	}

	usersSvc := users.NewService(remote, sessions, clients.Auth)
	notificationsSvc := notifications.NewService(remote, clients.Messaging)
	requestsSvc := requests.NewService(remote, notificationsSvc)
	servicesRepo := services.NewRepo(remote)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:              cfg,
		AuthClient:       clients.Auth,
		Remote:           remote,
		UsersSvc:         usersSvc,
		RequestsSvc:      requestsSvc,
		ServicesRepo:     servicesRepo,
		NotificationsSvc: notificationsSvc,
		ServiceImages:    serviceImages,
		ProviderImages:   providerImages,
		Uploads:          handlers.NewUploads(cfg),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Info("API listening", zap.String("port", cfg.Port), zap.String("project", cfg.ProjectID))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down")
	_ = srv.Shutdown(ctxShutdown)
}
