// Package postgres holds the relational side-stores this engine keeps
// for concerns out of scope for the engine itself
// (chat-history persistence, template/host storage) but that a
// runnable system still needs when ENVIRONMENT=prod.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"surveyengine/internal/domain/repositories"
)

// TableNames holds the environment-prefixed table names every
// postgres-backed store reads/writes, mirroring the dev_/test_/prod_
// convention.
type TableNames struct {
	Templates    string
	Hosts        string
	ChatLogs     string
	ChatLogTurns string
}

// NewTableNames builds the prefixed names for one environment.
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Templates:    fmt.Sprintf("%stemplates", prefix),
		Hosts:        fmt.Sprintf("%shosts", prefix),
		ChatLogs:     fmt.Sprintf("%schat_logs", prefix),
		ChatLogTurns: fmt.Sprintf("%schat_log_turns", prefix),
	}
}

// CreateConnectionPool opens a pgx pool, auto-detecting a PgBouncer
// transaction-pooler endpoint (port 6543) and switching to
// QueryExecModeCacheDescribe so prepared statements don't collide with
// pooled connections.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	// Port 6543 is a transaction-pooler endpoint (e.g. Supabase); it
	// doesn't support server-side prepared statements.
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction attached to ctx if one is in
// flight (via repositories.WithTx), otherwise the pool itself — so a
// store can be written once and participate in a caller's transaction
// transparently.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
