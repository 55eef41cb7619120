package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tombleron/z2p/internal/api"
	"github.com/Tombleron/z2p/internal/database"
	"github.com/Tombleron/z2p/internal/metrics"
	"github.com/Tombleron/z2p/internal/server"
)

// probeInterval spaces the background database health pings.
const probeInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until SIGINT or SIGTERM",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Open(ctx, cfg.Database.WithDatabase(), database.OptionsFrom(cfg.Database), log.Desugar())
	if err != nil {
		log.Errorw("database unavailable", "target", cfg.Database.WithDatabase().String(), "err", err)
		return err
	}
	defer db.Close()
	log.Infow("database online", "database", cfg.Database.DatabaseName)

	m := metrics.New(prometheus.DefaultRegisterer)
	router := api.NewRouter(api.Deps{DB: db, Log: log, Metrics: m})
	srv := server.New(cfg.Application.Address(), router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, srv, log) })
	g.Go(func() error {
		probeDatabase(gctx, db, cfg.Database.AcquireTimeout, m, log)
		return nil
	})
	return g.Wait()
}

// probeDatabase pings db every probeInterval until ctx ends.  Failures are
// logged and counted but never stop the server.
func probeDatabase(ctx context.Context, db *sqlx.DB, timeout time.Duration, m *metrics.Metrics, log *zap.SugaredLogger) {
	t := time.NewTicker(probeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := database.Ping(ctx, db, timeout); err != nil && ctx.Err() == nil {
				m.DatabasePingFailureTotal.Inc()
				log.Warnw("database ping failed", "err", err)
			}
		}
	}
}
