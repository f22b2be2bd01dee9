package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/iectl/internal/config"
	"github.com/danmuck/iectl/internal/logging"
	"github.com/danmuck/iectl/internal/observability"
	"github.com/danmuck/iectl/internal/server"
	"github.com/gin-gonic/gin"
)

func main() {
	path := flag.String("config", "", "gate config (toml); empty uses defaults")
	flag.Parse()

	logging.ConfigureRuntime()
	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iegate: %v\n", err)
		os.Exit(1)
	}
	if cfg.Log.File != "" {
		observability.InitLoggerWith(cfg.Name, os.Stderr, &observability.LogFile{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	}

	gin.SetMode(gin.ReleaseMode)
	gate, err := server.NewGate(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iegate: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := gate.Serve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "iegate: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.GateConfig, error) {
	if path == "" {
		return config.DefaultGateConfig(), nil
	}
	return config.LoadGateConfig(path)
}
