package main

import (
	"context"

	"github.com/cppla/uploadhub/config"
	"github.com/cppla/uploadhub/filestore"
	"github.com/cppla/uploadhub/routes"
	"github.com/cppla/uploadhub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	store, err := filestore.New(cfg.UploadRoot, filestore.DefaultTable, utils.Logger)
	if err != nil {
		utils.Sugar.Fatalf("invalid upload root: %v", err)
	}
	if err := store.EnsureDirectories(); err != nil {
		utils.Sugar.Fatalf("prepare upload directories: %v", err)
	}

	r := routes.SetupRouter(cfg, store)

	// Purge temp files orphaned by interrupted writes (best-effort)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	utils.StartUploadCleaner(ctx, cfg.UploadSweepInterval, cfg.UploadTempMaxAge, store)

	utils.Sugar.Infof("Starting upload server on port %s (graceful), storing under %s", cfg.AppPort, store.Root())
	if err := utils.GraceServer(":"+cfg.AppPort, r, cancel); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
