package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"typologylab/internal/config"
	"typologylab/internal/logger"
	transport "typologylab/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	svc, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	routerCfg := transport.RouterConfig{Service: svc.quiz, Log: log, AllowedOrigins: cfg.Server.AllowedOrigins}
	if svc.identity != nil {
		routerCfg.Auth = svc.identity.Middleware
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		// Let result submissions started before shutdown reach the store.
		svc.quiz.Wait()
		log.Info("pending submissions drained")
		return err
	})

	return g.Wait()
}
