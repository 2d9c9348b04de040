package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/exa-search-tool/internal/mcpserver"
	"github.com/kitbuilder587/exa-search-tool/internal/metrics"
	"github.com/kitbuilder587/exa-search-tool/internal/search/exa"
	"github.com/kitbuilder587/exa-search-tool/internal/tool"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search_web tool over MCP on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")
}

func serveRun(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if metricsAddr != "" {
		a.cfg.Metrics.Addr = metricsAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	t := tool.NewExa(exa.Config{
		APIKey:  a.cfg.Exa.APIKey,
		BaseURL: a.cfg.Exa.BaseURL,
		Timeout: a.cfg.Exa.Timeout,
	}, a.logger, tool.WithMetrics(m))

	srv := mcpserver.New(a.cfg.Server.Name, appVersion, t, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// stdin EOF ends the session; take the metrics server down with it.
		defer stop()
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	})

	if a.cfg.Metrics.Addr != "" {
		httpSrv := &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.logger.Info("metrics server listening", zap.String("addr", httpSrv.Addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	a.logger.Info("server stopped")
	return err
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HandlerFor(g))
	return mux
}
