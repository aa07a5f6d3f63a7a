package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cms/internal/config"
	"cms/internal/database"
	"cms/internal/server"
	"cms/internal/services"
	"cms/internal/storage"
	"cms/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openAndMigrate(cfg.Database)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			images, err := newImageStore(ctx, cfg.Storage)
			if err != nil {
				return err
			}

			var publisher services.EventPublisher
			if cfg.RabbitMQ.URL != "" {
				mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL})
				if err != nil {
					return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
				}
				defer mqClient.Close()
				publisher = mqClient

				slog.Info("starting RabbitMQ consumer for article events")
				if err := mqClient.ConsumeArticleEvents(rabbitmq.LogArticleEvent); err != nil {
					slog.Warn("failed to start RabbitMQ consumer", "err", err)
				}
			} else {
				slog.Info("RABBITMQ_URL not set, article events are disabled")
			}

			app := server.New(server.NewServices(db, images, publisher, cfg.JWT))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			listenErr := make(chan error, 1)
			go func() {
				slog.Info("starting server", "addr", cfg.AppPort)
				listenErr <- app.Listen(cfg.AppPort)
			}()

			select {
			case err := <-listenErr:
				return fmt.Errorf("server failed: %w", err)
			case <-quit:
			}

			slog.Info("shutting down server")
			if err := app.Shutdown(); err != nil {
				slog.Error("error during Fiber shutdown", "err", err)
			}
			slog.Info("server gracefully stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, err := openAndMigrate(cfg.Database); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}

func createSuperuserCmd() *cobra.Command {
	var email, nickname, password string
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openAndMigrate(cfg.Database)
			if err != nil {
				return err
			}
			svc := server.NewServices(db, nil, nil, cfg.JWT)
			user, err := svc.Auth.CreateSuperuser(cmd.Context(), email, nickname, password)
			if err != nil {
				var verr *services.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("invalid superuser: %v", verr.Fields)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "superuser %s created\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&nickname, "nickname", "", "account nickname")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("nickname")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func openAndMigrate(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "minio":
		return storage.NewMinIOStore(ctx, cfg.MinIO)
	default:
		return storage.NewLocalStore(cfg.UploadDir), nil
	}
}
