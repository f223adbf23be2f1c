package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/packtory/packtory/internal/api"
	"github.com/packtory/packtory/internal/config"
	"github.com/packtory/packtory/internal/ingest"
	"github.com/packtory/packtory/internal/store"
	"github.com/packtory/packtory/internal/vcs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry server",
	Long: `Start the registry server.

Without a configuration file the server keeps all state in memory, which is
suitable for local development. Production deployments configure a postgres
storage backend and optionally extend the package name policy; see the
config file format for details.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 30 * time.Second // Submissions clone repositories, give them room
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 35 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}
}

// newStore builds the persistence backend selected by the configuration.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.GetStorage() {
	case config.StorageTypePostgres:
		dbCfg, err := cfg.Database.StoreConfig()
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(ctx, dbCfg)
	default:
		return store.NewInMemoryStore(), nil
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	address := viper.GetString("address")

	slog.Info("Starting registry server", "address", address)

	cfg := config.Default()
	if configPath := viper.GetString("config"); configPath != "" {
		loaded, err := config.LoadConfig(config.WithConfigPath(configPath))
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		slog.Info("Loaded configuration", "path", configPath, "storage", cfg.GetStorage())
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("Error closing store", "error", closeErr)
		}
	}()

	policy, err := cfg.BuildPolicy()
	if err != nil {
		return err
	}

	var driverOpts []vcs.DriverOption
	if cfg.GitHub != nil && cfg.GitHub.APIBase != "" {
		driverOpts = append(driverOpts, vcs.WithGitHubAPIBase(cfg.GitHub.APIBase))
	}
	drivers := vcs.NewDriverFactory(driverOpts...)

	ingestor := ingest.New(drivers, st, policy)

	router := api.NewServer(ingestor, st,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
