package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresExchangesStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresExchangesStorage(pool *pgxpool.Pool) *PostgresExchangesStorage {
	return &PostgresExchangesStorage{pool: pool}
}

func (s *PostgresExchangesStorage) InsertExchange(ctx context.Context, exchange *storage.Exchange) error {
	if exchange.ID == uuid.Nil {
		exchange.ID = uuid.New()
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}
	exchange.OwnerUserID = strings.TrimSpace(exchange.OwnerUserID)

	const query = `
		INSERT INTO coach_exchanges (id, owner_user_id, message, decision_type, period_start, period_end, reply, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		exchange.ID,
		exchange.OwnerUserID,
		exchange.Message,
		exchange.DecisionType,
		exchange.PeriodStart,
		exchange.PeriodEnd,
		exchange.Reply,
		exchange.CreatedAt,
	)
	return err
}

func (s *PostgresExchangesStorage) ListExchanges(ctx context.Context, ownerUserID string, limit int) ([]storage.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, owner_user_id, message, decision_type, period_start, period_end, reply, created_at
		FROM coach_exchanges
		WHERE owner_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(ownerUserID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]storage.Exchange, 0, limit)
	for rows.Next() {
		var ex storage.Exchange
		if err := rows.Scan(
			&ex.ID,
			&ex.OwnerUserID,
			&ex.Message,
			&ex.DecisionType,
			&ex.PeriodStart,
			&ex.PeriodEnd,
			&ex.Reply,
			&ex.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *PostgresStorage) InsertExchange(ctx context.Context, exchange *storage.Exchange) error {
	return p.exchanges.InsertExchange(ctx, exchange)
}

func (p *PostgresStorage) ListExchanges(ctx context.Context, ownerUserID string, limit int) ([]storage.Exchange, error) {
	return p.exchanges.ListExchanges(ctx, ownerUserID, limit)
}
