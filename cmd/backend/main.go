package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medassist-ai/cmd/mainconfig"
	"github.com/wolfman30/medassist-ai/internal/api/router"
	"github.com/wolfman30/medassist-ai/internal/app/bootstrap"
	"github.com/wolfman30/medassist-ai/internal/backend"
	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	httpmiddleware "github.com/wolfman30/medassist-ai/internal/http/middleware"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medassist reference backend",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("JWT_SECRET not set; using a per-process secret, tokens will not survive a restart")
	}
	tokens, err := backend.NewTokenIssuer(secret, cfg.JWTTTL)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	origin, err := backend.ParseCoordinates(cfg.HospitalOrigin)
	if err != nil {
		logger.Error("invalid HOSPITAL_ORIGIN", "error", err)
		os.Exit(1)
	}

	users, closeUsers, err := bootstrap.BuildUserRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build user repository", "error", err)
		os.Exit(1)
	}
	defer closeUsers()

	llmClient, err := bootstrap.BuildLLMClient(ctx, cfg, mainconfig.Loader(cfg), logger)
	if err != nil {
		logger.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}

	backendMetrics := metrics.NewBackendMetrics(nil)
	handler := backend.NewHandler(backend.HandlerConfig{
		Users:     users,
		Tokens:    tokens,
		Reports:   backend.NewReportGenerator(llmClient, cfg.LLMModelID, logger, backendMetrics),
		Directory: backend.NewDirectory(nil, origin),
		Logger:    logger,
		Metrics:   backendMetrics,
	})

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	go limiter.RunEviction(ctx, time.Minute, 10*time.Minute)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.NewBackend(&router.BackendConfig{
			Logger:             logger,
			Handler:            handler,
			MetricsHandler:     promhttp.Handler(),
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimiter:        limiter,
			JWTSecret:          secret,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
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

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
