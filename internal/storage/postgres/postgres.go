package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage: Postgres реализация storage.Storage
type PostgresStorage struct {
	pool      *pgxpool.Pool
	runs      *PostgresRunsStorage
	exchanges *PostgresExchangesStorage
}

// New открывает пул соединений и проверяет доступность БД
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:      pool,
		runs:      NewPostgresRunsStorage(pool),
		exchanges: NewPostgresExchangesStorage(pool),
	}, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
