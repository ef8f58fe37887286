package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/microservices/automation"
	"restaurant-automation/internal/microservices/notificator"
)

const (
	modeAutomation   = "automation-service"
	modeNotification = "notification-subscriber"
)

func main() {
	mode := pflag.String("mode", modeAutomation, "automation-service | notification-subscriber")
	configPath := pflag.String("config", "", "path to config.yaml (default: ./config.yaml if present)")
	port := pflag.Int("port", 0, "automation-service: http port (overrides config)")
	prefetch := pflag.Int("prefetch", 0, "RabbitMQ prefetch (overrides config)")
	workerName := pflag.String("worker-name", "", "automation-service: intake consumer tag")
	pflag.Parse()

	boot := logger.New("bootstrap")

	path := *configPath
	if path == "" {
		found, err := config.FindConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			boot.Error("config_lookup_failed", err, nil)
			os.Exit(1)
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		boot.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}
	if *port > 0 {
		cfg.HTTP.Port = *port
	}
	if *prefetch > 0 {
		cfg.Rabbit.Prefetch = *prefetch
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case modeAutomation:
		lg := logger.NewWithLevel(modeAutomation, cfg.LogLevel)
		defer lg.Sync()
		lg.Info("service_started", map[string]any{"port": cfg.HTTP.Port, "env": cfg.Env, "automation_enabled": cfg.Automation.Enabled})
		err = automation.Run(ctx, cfg, automation.Options{WorkerName: *workerName, Prefetch: cfg.Rabbit.Prefetch}, lg)
		exit(lg, err)
	case modeNotification:
		lg := logger.NewWithLevel(modeNotification, cfg.LogLevel)
		defer lg.Sync()
		lg.Info("service_started", map[string]any{"prefetch": cfg.Rabbit.Prefetch})
		exit(lg, notificator.Run(ctx, cfg.Rabbit, cfg.Rabbit.Prefetch, lg))
	default:
		fmt.Fprintln(os.Stderr, "--mode must be automation-service or notification-subscriber")
		os.Exit(2)
	}
}

func exit(lg *logger.Logger, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("fatal", err, nil)
		lg.Sync()
		os.Exit(1)
	}
	lg.Info("service_stopped", nil)
}
