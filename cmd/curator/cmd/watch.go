package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive until interrupted",
		Long: `Refresh the session half way through each token lifetime, clamped to the
minRefreshSeconds and maxRefreshMinutes settings, until interrupted. A failed
refresh ends the session and watch keeps waiting for the next login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(cmd.OutOrStdout(), a.cfg.GetAppName())
			ctx := cmd.Context()

			if metricsAddr != "" {
				stop := serveMetrics(a, metricsAddr)
				defer stop()
			}

			unsubscribe := a.store.Subscribe(func(s *session.Session) {
				if s == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Session ended")
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session for %s expires %s\n", s.User.Username, s.ExpiresAt().Format(time.RFC3339))
			})
			defer unsubscribe()

			scheduler := session.NewScheduler(a.store, a.settings, session.WithRefreshResult(func(r api.Response[api.SessionPayload]) {
				if r.Kind() != api.KindSuccess && r.Kind() != api.KindCanceled {
					fmt.Fprintln(cmd.ErrOrStderr(), api.Message(api.OpRefresh, r))
				}
			}))

			err := scheduler.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	return cmd
}

func serveMetrics(a *app, addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
