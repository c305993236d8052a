package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/middleware"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
	"github.com/ZanzyTHEbar/heartrisk/internal/security"
)

const limiterSweepInterval = 10 * time.Minute

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and entry form",
		Long:  `Starts the HTTP host. The model loads in the background; /health reports 503 until it is ready.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	metrics := monitoring.NewMetrics()

	svc, err := newService(c.cfg, newONNXLoader(c.cfg), c.logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.session.Close(); err != nil {
			apperrors.LogWith(c.logger.Logger, apperrors.ToAppError(err))
		}
	}()

	secConfig := c.cfg.Security()
	sm := security.NewSecurityMiddleware(secConfig, metrics)

	var compression *middleware.CompressionMiddleware
	if c.cfg.Server.EnableCompression {
		compression = middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	}

	router, err := setupRouter(routerDeps{
		analyzer:        svc.analyzer,
		status:          svc.session,
		metrics:         metrics,
		logger:          c.logger,
		security:        sm,
		securityConfig:  secConfig,
		compression:     compression,
		cspReportURI:    c.cfg.Server.CSPReportURI,
		enableProfiling: c.cfg.Server.EnableProfiling,
	})
	if err != nil {
		return err
	}

	shutdownTimeout, err := c.cfg.ShutdownTimeout()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", c.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// a failed load leaves the host up and reporting 503
		if err := <-svc.session.LoadAsync(gctx); err != nil {
			apperrors.LogWith(c.logger.Logger, apperrors.ToAppError(err))
		}
		return nil
	})

	g.Go(func() error {
		return sm.Cleanup(gctx, limiterSweepInterval)
	})

	g.Go(func() error {
		c.logger.SystemLogger("server_start", "listening on "+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.logger.SystemLogger("server_shutdown", "draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	return nil
}
