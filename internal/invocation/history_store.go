package invocation

import (
	"context"
	"time"

	"embulkshim/internal/engine"
)

// Record is one handled invocation as kept in the history store.
type Record struct {
	ID             string             `json:"id"`
	ConfigFileName string             `json:"config_file_name"`
	Kind           engine.OutcomeKind `json:"kind"`
	ExitCode       int                `json:"exit_code"`
	StatusCode     int                `json:"status_code"`
	Message        string             `json:"message"`
	StartedAt      time.Time          `json:"started_at"`
	EndedAt        time.Time          `json:"ended_at"`
}

func (r Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

type HistoryStore interface {
	SaveRecord(ctx context.Context, rec Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
