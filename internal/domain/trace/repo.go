package trace

import (
	"context"

	"github.com/google/uuid"
)

// SearchParams filters trace log listings.
type SearchParams struct {
	InputType string
	Status    string
	HasErrors *bool
}

// Repository is the durable store behind the trace engine. CreateLog and
// AppendStep are atomic creates; UpdateLog is the single finalizing update
// of an ingestion.
type Repository interface {
	CreateLog(ctx context.Context, log *TraceLog) error
	AppendStep(ctx context.Context, step *TraceStep) error
	UpdateLog(ctx context.Context, log *TraceLog) error
	GetByTraceID(ctx context.Context, traceID string) (*TraceLog, error)
	ListSteps(ctx context.Context, traceLogID uuid.UUID) ([]*TraceStep, error)
	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*TraceLog, int, error)
}
