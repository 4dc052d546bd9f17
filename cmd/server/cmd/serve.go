package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/social-events/internal/api"
	"github.com/Togather-Foundation/social-events/internal/auth"
	"github.com/Togather-Foundation/social-events/internal/config"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"github.com/Togather-Foundation/social-events/internal/metrics"
	"github.com/Togather-Foundation/social-events/internal/storage/mongostore"
	"github.com/Togather-Foundation/social-events/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	tokenIssuer     = "social-events"
)

// serveOptions override the configured listen address.
type serveOptions struct {
	host string
	port int
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the social events HTTP server",
		Long: `Start the social events HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables, .env and --config
- Connect to MongoDB and normalize legacy joined-event ids
- Start the HTTP API with bearer authentication
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 3000)")
	return cmd
}

func runServer(ctx context.Context, root *rootOptions, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting social events server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	store, err := mongostore.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(cctx); err != nil {
			logger.Error().Err(err).Msg("database disconnect error")
		}
	}()
	logger.Info().Str("database", cfg.Database.Name).Msg("connected to MongoDB")

	joinedService := joined.NewService(store.Joined())
	if cfg.Database.NormalizeJoinedIDs {
		converted, err := joinedService.NormalizeIDs(ctx)
		if err != nil {
			logger.Warn().Err(err).Int64("converted", converted).Msg("joined id normalization incomplete")
		} else {
			logger.Info().Int64("converted", converted).Msg("joined ids normalized")
		}
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	logger.Info().Str("provider", cfg.Auth.Provider).Msg("token verifier ready")

	router := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Verifier:  verifier,
		Joined:    joinedService,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})
	defer router.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB max header size
		ErrorLog:          log.New(logger.With().Str("component", "http").Logger(), "", 0),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, server, logger)
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return g.Wait()
}

func newVerifier(ctx context.Context, cfg config.Config) (auth.Verifier, error) {
	switch cfg.Auth.Provider {
	case "jwt":
		if cfg.Environment == "production" {
			return nil, errors.New("development tokens are not allowed in production")
		}
		return auth.NewDevVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, tokenIssuer)
	case "firebase":
		return auth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseCredentialsFile, cfg.Auth.FirebaseProjectID)
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}
