package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id UUID PRIMARY KEY,
	observed_at TIMESTAMPTZ NOT NULL,
	kind TEXT NOT NULL,
	symbol TEXT NOT NULL,
	buy_venue TEXT NOT NULL,
	sell_venue TEXT NOT NULL,
	buy_price DOUBLE PRECISION NOT NULL,
	sell_price DOUBLE PRECISION NOT NULL,
	profit DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	path TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_opportunities_path ON opportunities (path, observed_at);
`

const insertOpportunity = `
INSERT INTO opportunities
	(id, observed_at, kind, symbol, buy_venue, sell_venue, buy_price, sell_price, profit, volume, path, details)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// pgxPool is the slice of pgxpool.Pool the store actually uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore journals opportunities into a single table.
type PostgresStore struct {
	pool pgxPool
	log  *logrus.Entry
}

func NewPostgres(ctx context.Context, dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store := newPostgresWithPool(pool, logger)
	if err := store.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresWithPool(pool pgxPool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		log:  logger.WithField("component", "storage"),
	}
}

func (s *PostgresStore) bootstrap(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.log.Info("Opportunity journal ready")
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, opp models.Opportunity) error {
	_, err := s.pool.Exec(ctx, insertOpportunity,
		uuid.New(),
		opp.Timestamp,
		string(opp.Kind),
		opp.Symbol,
		opp.BuyVenue,
		opp.SellVenue,
		opp.BuyPrice,
		opp.SellPrice,
		opp.Profit,
		opp.Volume,
		opp.Path,
		opp.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to append opportunity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
