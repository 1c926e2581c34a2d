package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/config"
	"github.com/kendall-kelly/service-crm-api/logger"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/routes"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			if autoMigrate {
				if err := models.AutoMigrate(db); err != nil {
					return fmt.Errorf("failed to migrate database: %w", err)
				}
				log.Info("database migration completed")
			}

			srv, err := newServer(cmd.Context(), cfg, db, log)
			if err != nil {
				return err
			}
			return run(srv, log)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "Run AutoMigrate before serving")
	return cmd
}

// bootstrap loads configuration, initialises logging and opens the database
func bootstrap() (*config.Config, *gorm.DB, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, log, nil
}

// newServer wires the optional integrations and builds the HTTP server
func newServer(ctx context.Context, cfg *config.Config, db *gorm.DB, log *slog.Logger) (*http.Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = io.Discard

	deps := routes.Dependencies{Config: cfg, DB: db}

	if cfg.TelegramEnabled() {
		deps.Notifier = services.NewTelegramNotifier(services.TelegramConfig{
			Endpoint: cfg.TelegramEndpoint,
			Token:    cfg.TelegramToken,
			Timeout:  cfg.NotifyTimeout,
		})
		log.Info("chat notifications enabled", "bot", cfg.TelegramBotName)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, chat notifications are disabled")
	}

	if cfg.SMTPEnabled() {
		deps.Mailer = services.NewSMTPMailer(cfg)
	} else {
		log.Warn("SMTP_HOST not set, verification links are only logged")
	}

	if cfg.S3Enabled() {
		storage, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Images = services.NewImageService(storage)
		log.Info("order photos enabled", "bucket", cfg.AWSS3Bucket)
	} else {
		log.Warn("AWS_S3_BUCKET not set, order photo uploads are disabled")
	}

	router, err := routes.Setup(deps)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully
func run(srv *http.Server, log *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited gracefully")
	return nil
}

func closeDB(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("failed to close database", "error", err)
	}
}
