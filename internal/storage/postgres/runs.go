package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRunsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresRunsStorage(pool *pgxpool.Pool) *PostgresRunsStorage {
	return &PostgresRunsStorage{pool: pool}
}

func (s *PostgresRunsStorage) InsertRun(ctx context.Context, run *storage.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.OwnerUserID = strings.TrimSpace(run.OwnerUserID)

	const query = `
		INSERT INTO runs (id, owner_user_id, started_at, distance_km, duration_min, elevation_m, avg_hr,
			z1_min, z2_min, z3_min, z4_min, z5_min, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		run.ID,
		run.OwnerUserID,
		run.StartedAt.UTC(),
		run.DistanceKm,
		run.DurationMin,
		run.ElevationM,
		run.AvgHR,
		run.ZoneMinutes[0],
		run.ZoneMinutes[1],
		run.ZoneMinutes[2],
		run.ZoneMinutes[3],
		run.ZoneMinutes[4],
		run.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrDuplicateRun
		}
		return err
	}
	return nil
}

func (s *PostgresRunsStorage) ListRuns(ctx context.Context, ownerUserID string, from, to time.Time) ([]storage.Run, error) {
	const query = `
		SELECT id, owner_user_id, started_at, distance_km, duration_min, elevation_m, avg_hr,
			z1_min, z2_min, z3_min, z4_min, z5_min, created_at
		FROM runs
		WHERE owner_user_id = $1
		  AND started_at >= $2
		  AND started_at < $3
		ORDER BY started_at ASC
	`

	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(ownerUserID), from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]storage.Run, 0)
	for rows.Next() {
		var run storage.Run
		if err := rows.Scan(
			&run.ID,
			&run.OwnerUserID,
			&run.StartedAt,
			&run.DistanceKm,
			&run.DurationMin,
			&run.ElevationM,
			&run.AvgHR,
			&run.ZoneMinutes[0],
			&run.ZoneMinutes[1],
			&run.ZoneMinutes[2],
			&run.ZoneMinutes[3],
			&run.ZoneMinutes[4],
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *PostgresStorage) InsertRun(ctx context.Context, run *storage.Run) error {
	return p.runs.InsertRun(ctx, run)
}

func (p *PostgresStorage) ListRuns(ctx context.Context, ownerUserID string, from, to time.Time) ([]storage.Run, error) {
	return p.runs.ListRuns(ctx, ownerUserID, from, to)
}
