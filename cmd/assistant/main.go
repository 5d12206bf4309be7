package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/medassist-ai/cmd/mainconfig"
	"github.com/wolfman30/medassist-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/internal/persistence"
	"github.com/wolfman30/medassist-ai/internal/session"
	"github.com/wolfman30/medassist-ai/internal/transport"
	"github.com/wolfman30/medassist-ai/internal/view"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "medassist:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	if err := applyFlags(cfg, flag.CommandLine, os.Args[1:]); err != nil {
		return err
	}

	logOut := io.Writer(os.Stderr)
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewWithWriter(cfg.LogLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := bootstrap.BuildKVStore(ctx, cfg, mainconfig.Loader(cfg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()
	adapter := persistence.New(store, logger)

	client, err := transport.New(transport.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.RequestRetries,
		Backoff:    cfg.RequestBackoff,
		Tokens:     adapter,
		Logger:     logger.Logger,
	})
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("backend not reachable", "base_url", cfg.APIBaseURL, "error", err)
		fmt.Fprintf(os.Stdout, "warning: backend %s is not reachable (%v)\n", cfg.APIBaseURL, err)
	}

	ctrl, err := session.New(session.Options{
		Store:            adapter,
		Transport:        client,
		Logger:           logger,
		Metrics:          metrics.NewSessionMetrics(nil),
		RegisterPolicy:   session.ParseRegisterPolicy(cfg.RegisterPolicy),
		HospitalFallback: cfg.HospitalFallback,
	})
	if err != nil {
		return err
	}
	if err := ctrl.Hydrate(ctx); err != nil {
		logger.Warn("restored session with errors", "error", err)
	}

	return view.NewTerminal(ctrl, os.Stdin, os.Stdout, logger).Run(ctx)
}

// applyFlags lets command-line flags override the environment.
func applyFlags(cfg *appconfig.Config, fs *flag.FlagSet, args []string) error {
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "backend base URL, including the proxy prefix")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "state backend: file, memory, redis, postgres, dynamodb, s3")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "state file for the file backend")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogPath, "log-file", cfg.LogPath, "write logs to this file instead of stderr")
	fs.StringVar(&cfg.RegisterPolicy, "register-policy", cfg.RegisterPolicy, "after register: return_to_login or auto_login")
	fs.BoolVar(&cfg.HospitalFallback, "hospital-fallback", cfg.HospitalFallback, "recommend a general hospital when the report names no department")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
