package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medassist-ai/internal/api/router"
	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	httpmiddleware "github.com/wolfman30/medassist-ai/internal/http/middleware"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/internal/proxy"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medassist CORS proxy",
		"env", cfg.Env,
		"port", cfg.Port,
		"upstream", cfg.UpstreamBaseURL,
	)

	fwd, err := proxy.New(proxy.Config{
		UpstreamBaseURL: cfg.UpstreamBaseURL,
		Prefix:          cfg.ProxyPrefix,
		Timeout:         cfg.UpstreamTimeout,
		Logger:          logger,
		Metrics:         metrics.NewProxyMetrics(nil),
	})
	if err != nil {
		logger.Error("invalid proxy configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	go limiter.RunEviction(ctx, time.Minute, 10*time.Minute)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.NewProxy(&router.ProxyConfig{
			Logger:             logger,
			Forwarder:          fwd,
			MetricsHandler:     promhttp.Handler(),
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimiter:        limiter,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "prefix", fwd.Prefix())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
