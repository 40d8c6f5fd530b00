package database

import (
	"context"
	"errors"
	"fmt"

	"chat-client/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps slots in a client_slots table keyed by profile, for
// headless deployments that already run Postgres.
type PostgresStore struct {
	pool    *pgxpool.Pool
	profile string
}

func NewPostgresStore(ctx context.Context, databaseURL, profile string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS client_slots (
			profile    TEXT NOT NULL,
			slot       TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (profile, slot)
		)`
	if _, err := pool.Exec(ctx, query); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create client_slots table: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresStore{pool: pool, profile: profile}, nil
}

func (db *PostgresStore) Get(ctx context.Context, slot string) (string, error) {
	query := `SELECT value FROM client_slots WHERE profile = $1 AND slot = $2`

	var value string
	err := db.pool.QueryRow(ctx, query, db.profile, slot).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (db *PostgresStore) Set(ctx context.Context, slot, value string) error {
	query := `
		INSERT INTO client_slots (profile, slot, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile, slot)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	_, err := db.pool.Exec(ctx, query, db.profile, slot, value)
	return err
}

func (db *PostgresStore) Delete(ctx context.Context, slots ...string) error {
	// Delete in transaction
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, slot := range slots {
		if _, err := tx.Exec(ctx, "DELETE FROM client_slots WHERE profile = $1 AND slot = $2", db.profile, slot); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (db *PostgresStore) Close() error {
	db.pool.Close()
	return nil
}
