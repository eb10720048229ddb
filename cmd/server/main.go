package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/warroom-backend/internal/config"
	"github.com/DoyleJ11/warroom-backend/internal/coordinator"
	"github.com/DoyleJ11/warroom-backend/internal/httpapi"
	"github.com/DoyleJ11/warroom-backend/internal/hub"
	"github.com/DoyleJ11/warroom-backend/internal/logging"
	"github.com/DoyleJ11/warroom-backend/internal/metrics"
)

var (
	addr     string
	logLevel string
	envFile  string
)

var rootCmd = &cobra.Command{
	Use:           "warroom",
	Short:         "Real-time session server for tabletop tables",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.HTTPAddr = addr
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address, overrides HTTP_ADDR")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level, overrides LOG_LEVEL")
	serveCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, cfg config.AppConfig) (err error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	h := hub.NewHub(context.Background(), hub.Options{
		Capacity:    cfg.Room.Capacity,
		Alerts:      cfg.Room.Alerts,
		AutoRelease: cfg.Room.TurnAutoRelease,
		OutboxSize:  cfg.Room.OutboxSize,
		IdleTimeout: cfg.Room.IdleTimeout,
		Logger:      logger,
		Metrics:     m,
	})
	svc := coordinator.New(h)

	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: httpapi.SetupRoutes(svc, cfg, logger, m),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return h.RunJanitor(gctx, cfg.Room.JanitorInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		// Rooms first so clients get RoomClosed before their sockets drop.
		return multierr.Combine(h.Shutdown(sctx), server.Shutdown(sctx))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
