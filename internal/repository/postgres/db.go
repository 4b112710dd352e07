package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/rag-tutor/internal/config"
)

const applicationName = "rag-tutor"

// DB owns the pool shared by the history, knowledge and research log repositories
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and checks that the vector extension is installed.
// Run the migrations first.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.HealthCheckPeriod = 30 * time.Second
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := checkVectorExtension(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{pool: pool}, nil
}

func checkVectorExtension(ctx context.Context, pool *pgxpool.Pool) error {
	var version string
	err := pool.QueryRow(ctx, `SELECT extversion FROM pg_extension WHERE extname = 'vector'`).Scan(&version)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("pgvector extension is not installed, run the migrations")
	case err != nil:
		return fmt.Errorf("failed to check vector extension: %w", err)
	}
	return nil
}

func (db *DB) History() *HistoryRepository {
	return NewHistoryRepository(db.pool)
}

func (db *DB) Knowledge() *KnowledgeRepository {
	return NewKnowledgeRepository(db.pool)
}

func (db *DB) Interactions() *InteractionRepository {
	return NewInteractionRepository(db.pool)
}

// Close closes the pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
