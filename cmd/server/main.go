package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userfeed/internal/activity"
	"userfeed/internal/archiver"
	"userfeed/internal/config"
	apphttp "userfeed/internal/http"
	"userfeed/internal/repository"
	"userfeed/internal/repository/sqlite"
	"userfeed/internal/service"
	"userfeed/internal/storage"
	"userfeed/internal/userstore"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Fatalf("parse log level: %v", err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := userstore.Open(cfg.Store.Path, userstore.Options{
		Sync:   cfg.Store.Sync,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("open user store: %v", err)
	}
	defer store.Close()

	var runRepo repository.RunRepository = repository.NoopRunRepository{}
	if cfg.Journal.Path != "" {
		db, err := sqlite.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatalf("open journal: %v", err)
		}
		defer db.Close()

		runRepo = sqlite.NewRunRepository(db)
		if err := runRepo.Init(ctx); err != nil {
			logger.Fatalf("init run repository: %v", err)
		}
	}

	activities := activity.NewClient(cfg.Activity.URL, cfg.Activity.Timeout)
	userService := service.NewUserService(store, activities, runRepo, logger)

	var arch archiver.Archiver
	if cfg.Archive.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}

		arch = archiver.New(archiver.Config{
			Bucket:    cfg.Archive.Bucket,
			KeyPrefix: cfg.Archive.KeyPrefix,
			Interval:  cfg.Archive.Interval,
			Logger:    logger,
		}, store, storageSvc)
		if err := arch.Start(ctx); err != nil {
			logger.Fatalf("start archiver: %v", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, arch, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	// drain queued appends before the final archive
	store.Close()
	if arch != nil {
		arch.Shutdown()
	}

	logger.Info("bye")
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Archive.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving to s3 bucket %s (region %s)", cfg.Archive.Bucket, cfg.Archive.Region)
	return storage.NewS3Service(client), nil
}
