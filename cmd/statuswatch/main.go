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

	"github.com/spf13/cobra"

	"github.com/hazz-dev/statuswatch/internal/alert"
	"github.com/hazz-dev/statuswatch/internal/auth"
	"github.com/hazz-dev/statuswatch/internal/config"
	"github.com/hazz-dev/statuswatch/internal/endpoint"
	"github.com/hazz-dev/statuswatch/internal/logging"
	"github.com/hazz-dev/statuswatch/internal/probe"
	"github.com/hazz-dev/statuswatch/internal/refresh"
	"github.com/hazz-dev/statuswatch/internal/scheduler"
	"github.com/hazz-dev/statuswatch/internal/server"
	"github.com/hazz-dev/statuswatch/internal/storage"
	"github.com/hazz-dev/statuswatch/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "statuswatch",
		Short:        "Multi-tenant HTTP endpoint health monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// app holds the components shared by serve and refresh.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     endpoint.Store
	refresher *refresh.Refresher
	sched     *scheduler.Scheduler
	closers   []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("closing resource", "error", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	slog.SetDefault(logger)
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	store, storeCloser, err := openStore(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, storeCloser)
	logger.Info("storage opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	a.refresher = refresh.New(store, probe.NewHTTPProber(nil), buildNotifier(cfg.Alerts, logger),
		refresh.WithLogger(logger),
		refresh.WithConcurrency(cfg.Refresh.Concurrency),
	)

	a.sched, err = scheduler.New(cfg.Refresh.Schedule, a.refresher, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openStore returns the configured endpoint store and a closer for it.
func openStore(cfg config.StorageConfig) (endpoint.Store, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemory(), closerFunc(func() error { return nil }), nil
	default:
		db, err := storage.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		return db, db, nil
	}
}

// buildNotifier combines the enabled notification channels.
func buildNotifier(cfg config.AlertsConfig, logger *slog.Logger) alert.Multi {
	var m alert.Multi
	if cfg.LogEnabled() {
		m = append(m, alert.NewLogger(logger))
	}
	if cfg.Webhook.URL != "" {
		m = append(m, alert.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout.Duration, logger))
	}
	return m
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and scheduled refreshes",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret or %s must be set", config.JWTSecretEnv)
	}
	validator, err := auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}

	dir := endpoint.NewDirectory(a.store, a.refresher, logger)
	apiServer := server.New(dir, validator.Middleware, server.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		QA:          cfg.Server.QA,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if cfg.Refresh.OnStart {
		a.sched.RunInBackground(ctx)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address, "version", version.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		a.sched.Stop()
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}
	a.sched.Stop()

	logger.Info("shutdown complete")
	return nil
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh every stored endpoint once and print the summary",
		RunE:  runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.sched.RunOnce(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d endpoints, %d unhealthy\n", summary.RefreshedCount, summary.UnhealthyCount)
	return err
}

func checkCmd() *cobra.Command {
	var timeoutMs int64
	cmd := &cobra.Command{
		Use:   "check <url>...",
		Short: "Probe one or more URLs without storing results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd.Context(), cmd.OutOrStdout(), probe.NewHTTPProber(nil), args, timeoutMs)
		},
	}
	cmd.Flags().Int64Var(&timeoutMs, "timeout", probe.DefaultTimeoutMs, "probe timeout in milliseconds")
	return cmd
}

func statusCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print stored endpoint status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, closer, err := openStore(cfg.Storage)
			if err != nil {
				return err
			}
			defer closer.Close()
			return executeStatus(cmd, store, owner)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only show endpoints of this owner")
	return cmd
}
