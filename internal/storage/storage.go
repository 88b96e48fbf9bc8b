package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicateRun = errors.New("duplicate run")

// Run: одна пробежка, синхронизированная с телефона
type Run struct {
	ID          uuid.UUID
	OwnerUserID string
	StartedAt   time.Time
	DistanceKm  float64
	DurationMin float64
	ElevationM  float64
	AvgHR       *float64
	// Minutes spent in heart-rate zones 1..5.
	ZoneMinutes [5]float64
	CreatedAt   time.Time
}

// RunsStorage: интерфейс для хранения пробежек
type RunsStorage interface {
	// InsertRun сохраняет пробежку (ErrDuplicateRun для того же owner+started_at)
	InsertRun(ctx context.Context, run *Run) error

	// ListRuns возвращает пробежки в интервале [from, to), по возрастанию started_at
	ListRuns(ctx context.Context, ownerUserID string, from, to time.Time) ([]Run, error)
}

// Exchange is one request/response pair handled by the coaching service.
type Exchange struct {
	ID           uuid.UUID
	OwnerUserID  string
	Message      string
	DecisionType string
	PeriodStart  string
	PeriodEnd    string
	Reply        string
	CreatedAt    time.Time
}

// ExchangesStorage: журнал обращений к коучу
type ExchangesStorage interface {
	InsertExchange(ctx context.Context, exchange *Exchange) error

	// ListExchanges returns the newest exchanges first.
	ListExchanges(ctx context.Context, ownerUserID string, limit int) ([]Exchange, error)
}

// Storage bundles every store the service needs.
type Storage interface {
	RunsStorage
	ExchangesStorage

	// Close закрывает соединение (для Postgres)
	Close() error
}
