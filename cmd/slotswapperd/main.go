package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"slotswapper-backend/config"
	"slotswapper-backend/internal/api"
	"slotswapper-backend/internal/auth"
	"slotswapper-backend/internal/db"
	"slotswapper-backend/internal/ledger"
	"slotswapper-backend/internal/logging"
	"slotswapper-backend/internal/store"
	"slotswapper-backend/internal/swap"
)

func main() {
	app := &cli.App{
		Name:  "slotswapperd",
		Usage: "Swap calendar slots with other users.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./config/config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
				Usage:   "path to the YAML configuration file",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "slotswapperd: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap(c *cli.Context) (*config.Config, *zap.Logger, store.Store, error) {
	configPath := c.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger.Info("configuration loaded", zap.String("path", configPath), zap.String("env", cfg.Environment))

	isolation, err := cfg.Database.IsolationLevel()
	if err != nil {
		return nil, nil, nil, err
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, logger, store.NewGormStore(gormDB, isolation), nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema and exit.",
		Action: func(c *cli.Context) error {
			_, logger, _, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			logger.Info("schema is up to date")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			cfg, logger, appStore, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Environment == "production" {
				gin.SetMode(gin.ReleaseMode)
			}

			slots := ledger.New(appStore, logger)
			engine := swap.NewEngine(appStore, logger)
			authSvc := auth.NewService(appStore, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), logger)

			handler := api.NewHandler(appStore, slots, engine, authSvc, logger)
			router := api.NewRouter(handler, cfg.Server, logger)
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start the server in a goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Setup signal handling for graceful shutdown
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-stop:
				logger.Info("shutdown signal received, stopping server")
			case err := <-serverErr:
				return fmt.Errorf("HTTP server ListenAndServe: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("HTTP server Shutdown: %w", err)
			}

			if sqlDB, err := appStore.DB().DB(); err == nil {
				_ = sqlDB.Close()
			}
			logger.Info("server gracefully stopped")
			return nil
		},
	}
}
