package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nodule-lens/api/internal/app"
	"nodule-lens/api/internal/config"
	"nodule-lens/api/internal/handle"
	"nodule-lens/api/internal/httpserver"
	"nodule-lens/api/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()
	go a.PurgeLoop(ctx)

	h := handle.New(a.Service, a.Presenter, handle.Options{
		AnalyzeTimeout:   cfg.AnalyzeTimeout,
		RadiusScale:      cfg.RadiusScale,
		DisplayMaxWidth:  cfg.DisplayMaxWidth,
		DisplayMaxHeight: cfg.DisplayMaxHeight,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(a.Ping))
	h.Register(mux)

	if err := httpserver.Run(ctx, httpserver.New(":"+cfg.Port, mux), logger); err != nil {
		log.Fatal(err)
	}
}
