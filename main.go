package main

import (
	"context"
	"time"

	"github.com/cppla/socialbbs/config"
	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/routes"
	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/storage"
	"github.com/cppla/socialbbs/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	store, err := newBlobStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("init blob store: %v", err)
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	svc := services.New(db, utils.Logger, services.Options{
		Identity: services.IdentityOptions{
			Sessions:       tokens,
			Notifier:       utils.NewMailer(cfg, utils.Logger.Named("mailer")),
			CheckinReward:  cfg.CheckinRewardPoints,
			ResetTokenTTL:  time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute,
			AdminUsernames: cfg.AdminUsernames,
		},
		Filter:         utils.NewContentFilter(cfg.ContentDenylist, cfg.ContentPlaceholder),
		Store:          store,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	})

	r := routes.SetupRouter(cfg, db, svc, tokens)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func newBlobStore(cfg config.AppConfig) (storage.BlobStore, error) {
	if cfg.UploadBackend == "s3" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
