package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quaydocs/corpus-assistant/internal/bootstrap"
	"github.com/quaydocs/corpus-assistant/internal/observability/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, "gateway")
	if err != nil {
		os.Stderr.WriteString("startup: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer app.Close()

	gatewayMetrics := metrics.NewGatewayMetrics("gateway")
	gateway := app.Gateway(gatewayMetrics)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", gatewayMetrics.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              ":" + app.Config.GatewayMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("metrics server failed", "error", err)
		}
	}()

	app.Logger.Info("gateway running", "metrics_port", app.Config.GatewayMetricsPort)
	if err := gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("gateway failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	app.Logger.Info("gateway stopped")
}
