package main

import (
	"log"

	"github.com/cppla/uploadhub/config"
	"github.com/cppla/uploadhub/devproxy"
	"github.com/cppla/uploadhub/utils"
)

func main() {
	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	r, err := devproxy.New(cfg.DevProxyTarget, devproxy.DefaultRoutes, utils.Logger)
	if err != nil {
		utils.Sugar.Fatalf("dev proxy: %v", err)
	}

	utils.Sugar.Infof("Dev proxy on port %s forwarding to %s", cfg.DevProxyPort, cfg.DevProxyTarget)
	if err := utils.GraceServer(":"+cfg.DevProxyPort, r); err != nil {
		utils.Sugar.Fatalf("dev proxy stopped with error: %v", err)
	}
}
