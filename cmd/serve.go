/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simplyadil/QueryIQ/internal/api"
	"github.com/simplyadil/QueryIQ/internal/collector"
	"github.com/simplyadil/QueryIQ/internal/engine"
	"github.com/simplyadil/QueryIQ/internal/predict"
	"github.com/simplyadil/QueryIQ/internal/profile"
	"github.com/simplyadil/QueryIQ/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis service",
	Long: `Serve the analysis API over HTTP, backed by the local store.

When a database connection is available (via --db, --profile, the
QUERYIQ_DSN environment variable, or a default profile) a background
collector polls pg_stat_statements alongside the server. Without one
the service still answers ad-hoc analysis requests.

The configured model artifact is watched for changes and hot-reloaded
without dropping in-flight requests.`,
	Example: `  # API only
  queryiq serve --listen :8080

  # API plus background collection
  queryiq serve --profile prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		profileName, _ := cmd.Flags().GetString("profile")
		listen, _ := cmd.Flags().GetString("listen")
		modelPath, _ := cmd.Flags().GetString("model")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		if listen != "" {
			cfg.Server.Listen = listen
		}
		if modelPath != "" {
			cfg.Model.Path = modelPath
		}

		connStr, err := profile.ResolveDSN(db, profileName)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		registry := predict.NewRegistry(logger)
		if cfg.Model.Path != "" {
			if err := registry.LoadFile(cfg.Model.Path); err != nil {
				level.Warn(logger).Log("msg", "model not loaded, using fallback", "err", err)
			}
			watcher, err := predict.WatchFile(registry, cfg.Model.Path, logger)
			if err != nil {
				level.Warn(logger).Log("msg", "model watch disabled", "err", err)
			} else {
				defer watcher.Close()
			}
		}

		promReg := prometheus.NewRegistry()
		eng := engine.New(cfg.Engine, registry, logger, engine.NewMetrics(promReg))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		if connStr != "" {
			conn, version, err := collector.Connect(ctx, connStr)
			if err != nil {
				return err
			}
			defer conn.Close()
			col, err := collector.New(conn, version, eng, st, cfg.Collector, logger, collector.NewMetrics(promReg))
			if err != nil {
				return err
			}
			col.Start(ctx)
			g.Go(func() error {
				<-ctx.Done()
				col.Stop()
				return nil
			})
			level.Info(logger).Log("msg", "collector started", "interval", cfg.Collector.Interval)
		} else {
			level.Info(logger).Log("msg", "no database configured, collector disabled")
		}

		srv := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           api.New(eng, st, registry, cfg.Model.Path, promReg, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			level.Info(logger).Log("msg", "http server listening", "addr", cfg.Server.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		level.Info(logger).Log("msg", "server stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides config)")
	serveCmd.Flags().StringP("db", "d", "", "PostgreSQL connection string for the background collector")
	serveCmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	serveCmd.Flags().StringP("model", "m", "", "Model artifact to load and watch (overrides config)")
	serveCmd.MarkFlagsMutuallyExclusive("db", "profile")
}
