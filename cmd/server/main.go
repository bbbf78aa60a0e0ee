package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/config"
	"github.com/garyjia/cafe-importer/internal/container"
	httpapi "github.com/garyjia/cafe-importer/internal/interfaces/http"
	"github.com/garyjia/cafe-importer/pkg/utils"
)

const version = "1.0.0"

func main() {
	// optional; real environment variables win
	_ = gotenv.Load()

	configPath := os.Getenv("CAFE_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting CAFE invoice importer",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := app.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := app.Services()
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Mode:         cfg.Server.Mode,
	}, httpapi.Deps{
		Invoices:  services.Invoice,
		Guard:     services.Guard,
		Engine:    app.Engine(),
		Inbox:     app.Notifier(),
		Exporter:  app.Exporter(),
		Archive:   app.Archive(),
		QRBaseURL: cfg.Registry.QRBaseURL,
		Health: func(ctx context.Context) (bool, interface{}) {
			status := app.Health(ctx)
			return status.Overall, status.Components
		},
		Version: version,
	}, utils.NewKVLogger(logger))

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
		return
	}

	logger.Info("Server exited successfully")
}
