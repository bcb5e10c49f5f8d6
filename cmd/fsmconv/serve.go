package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/fsmconv"
	"github.com/aretw0/fsmconv/internal/presentation/tui"
	httpadapter "github.com/aretw0/fsmconv/pkg/adapters/http"
	"github.com/aretw0/fsmconv/pkg/adapters/memory"
	"github.com/aretw0/fsmconv/pkg/adapters/redis"
	"github.com/aretw0/fsmconv/pkg/observability"
	"github.com/aretw0/fsmconv/pkg/ports"
)

const (
	shutdownTimeout = 5 * time.Second
	slowRun         = time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the stateless conversion API. Requests may be rate limited per client,
in memory or through Redis (rate_limit.redis_url).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port, _ = cmd.Flags().GetInt("port")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler, closeFn, err := a.handler(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Port),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				tui.PrintBanner(cmd.ErrOrStderr())
			}
			return serve(ctx, a, srv)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().Bool("quiet", false, "Do not print the banner")
	return cmd
}

// handler wires the engine, metrics and rate limiter into the HTTP adapter.
func (a *app) handler(ctx context.Context) (http.Handler, func(), error) {
	metrics := observability.NewMetrics(nil)
	engine := a.engine(metrics.Hooks().Merge(observability.SlowRunHooks(a.logger, slowRun)))

	limiter, closeFn, err := a.rateLimiter(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []httpadapter.Option{
		httpadapter.WithLogger(a.logger),
		httpadapter.WithMetrics(metrics),
		httpadapter.WithLimits(engine.Limits()),
		httpadapter.WithAllowedOrigins(a.cfg.AllowedOrigins...),
	}
	if limiter != nil {
		opts = append(opts, httpadapter.WithRateLimiter(limiter))
	}
	return httpadapter.NewHandler(engine, opts...), closeFn, nil
}

func (a *app) rateLimiter(ctx context.Context) (ports.RateLimiter, func(), error) {
	rl := a.cfg.RateLimit
	if rl.Limit == 0 {
		return nil, func() {}, nil
	}
	if rl.RedisURL == "" {
		a.logger.Info("rate limiting in memory", "limit", rl.Limit, "window", rl.Window)
		return memory.NewRateLimiter(rl.Limit, rl.Window), func() {}, nil
	}

	limiter, err := redis.NewFromURL(rl.RedisURL, rl.Limit, rl.Window)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure redis rate limiter: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := limiter.Ping(pingCtx); err != nil {
		// Requests still pass while Redis is down.
		a.logger.Warn("redis unreachable, rate limiter will fail open", "error", err)
	}
	a.logger.Info("rate limiting through redis", "limit", rl.Limit, "window", rl.Window)
	return limiter, func() { _ = limiter.Close() }, nil
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, a *app, srv *http.Server) error {
	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("starting fsmconv server",
			"address", srv.Addr,
			"version", strings.TrimSpace(fsmconv.Version),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		a.logger.Info("shutdown signal received")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		a.logger.Info("fsmconv server stopped gracefully")
		return nil
	}
}
