package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"gitlab.com/teranga/resolution/internal/config"
)

// NewDb connects a pgx pool using the engine configuration.
func NewDb(ctx context.Context, cfg config.Postgres) (*Database, error) {
	pool, err := pgxpool.Connect(ctx, generateDsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewDatabase(pool), nil
}

func generateDsn(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}
