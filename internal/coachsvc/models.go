package coachsvc

import (
	"time"

	"github.com/fdg312/run-coach/internal/snapshot"
	"github.com/google/uuid"
)

const (
	TypeRequestSnapshot      = "REQUEST_SNAPSHOT"
	TypeRequestSnapshotBatch = "REQUEST_SNAPSHOT_BATCH"
)

type ChatRequest struct {
	Message   string               `json:"message"`
	Snapshot  *snapshot.Snapshot   `json:"snapshot"`
	Snapshots *ComparisonSnapshots `json:"snapshots,omitempty"`
	Meta      map[string]string    `json:"meta,omitempty"`
}

type ComparisonSnapshots struct {
	Left  *snapshot.Snapshot `json:"left"`
	Right *snapshot.Snapshot `json:"right"`
}

// ChatResponse is either a reply or a request for more data.
type ChatResponse struct {
	Reply     string            `json:"reply,omitempty"`
	Type      string            `json:"type,omitempty"`
	Period    *snapshot.Period  `json:"period,omitempty"`
	Snapshots *PeriodPair       `json:"snapshots,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

type PeriodPair struct {
	Left  snapshot.Period `json:"left"`
	Right snapshot.Period `json:"right"`
}

type ExchangeDTO struct {
	ID           uuid.UUID `json:"id"`
	Message      string    `json:"message"`
	DecisionType string    `json:"decision_type"`
	PeriodStart  string    `json:"period_start,omitempty"`
	PeriodEnd    string    `json:"period_end,omitempty"`
	Reply        string    `json:"reply,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListExchangesResponse struct {
	Exchanges []ExchangeDTO `json:"exchanges"`
}

type ExportRequest struct {
	Format string `json:"format"`
}

type ExportDTO struct {
	Key         string `json:"key"`
	Format      string `json:"format"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
	Exchanges   int    `json:"exchanges"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
