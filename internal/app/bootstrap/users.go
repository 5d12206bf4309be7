package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/medassist-ai/internal/backend"
	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// BuildUserRepository uses Postgres when DATABASE_URL is set and an
// in-memory repository otherwise. The returned close func is never nil.
func BuildUserRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (backend.UserRepository, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; accounts are kept in memory")
		return backend.NewInMemoryUserRepository(), noop, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, noop, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, noop, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("using postgres user repository")
	return backend.NewPostgresUserRepository(pool), pool.Close, nil
}
