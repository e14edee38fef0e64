package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-mission-scheduler/internal/http"
	"github.com/tbourn/go-mission-scheduler/internal/services"
)

func serveCmd() *cobra.Command {
	var sweepEvery time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			gin.SetMode(a.cfg.GinMode)
			r := gin.New()
			httpapi.RegisterRoutes(r, a.db, a.svcs, a.cfg)

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           r,
				ReadTimeout:       a.cfg.ReadTimeout,
				ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
				WriteTimeout:      a.cfg.WriteTimeout,
				IdleTimeout:       a.cfg.IdleTimeout,
				MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
			}

			if sweepEvery > 0 {
				go runSweeps(ctx, a.svcs.Jobs, sweepEvery)
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("base_path", a.cfg.APIBasePath).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().DurationVar(&sweepEvery, "sweep-every", 0, "run all sweeps in-process at this interval (0 disables; use an external scheduler)")
	return cmd
}

// runSweeps runs every job on each tick until ctx is done. Failures are
// logged by Jobs and retried on the next tick.
func runSweeps(ctx context.Context, jobs *services.Jobs, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := jobs.Run(ctx); err != nil {
				log.Error().Err(err).Msg("in-process sweep failed")
			}
		}
	}
}
