// Package trace is the payload trace/audit subsystem. Every ingested
// payload, regardless of format, produces one TraceLog with an ordered
// timeline of TraceSteps that analysts review for warnings and failures.
package trace

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Input type classifications.
const (
	InputHL7   = "HL7"
	InputJSON  = "JSON"
	InputEDI   = "EDI"
	InputOther = "OTHER"
)

// TraceLog statuses. A log is created RECEIVED and finalized exactly once
// to PROCESSED or FAILED; both are terminal.
const (
	StatusReceived  = "RECEIVED"
	StatusProcessed = "PROCESSED"
	StatusFailed    = "FAILED"
)

// TraceStep statuses.
const (
	StepOK    = "OK"
	StepWarn  = "WARN"
	StepError = "ERROR"
)

// Analyst-facing processing statuses derived from a log and its steps.
const (
	ProcessingSuccess      = "SUCCESS"
	ProcessingWithWarnings = "SUCCESS_WITH_WARNINGS"
	ProcessingFailed       = "FAILED_TRANSFORMATION"
)

// TraceLog is one ingested payload's audit record.
type TraceLog struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	TraceID       string                 `db:"trace_id" json:"trace_id"`
	Timestamp     time.Time              `db:"timestamp" json:"timestamp"`
	InputType     string                 `db:"input_type" json:"input_type"`
	OutputType    string                 `db:"output_type" json:"output_type"`
	Status        string                 `db:"status" json:"status"`
	Summary       string                 `db:"summary" json:"summary"`
	ErrorCount    int                    `db:"error_count" json:"error_count"`
	DurationMS    *int                   `db:"duration_ms" json:"duration_ms,omitempty"`
	RawPayload    string                 `db:"raw_payload" json:"raw_payload"`
	ParsedPreview map[string]interface{} `db:"parsed_preview" json:"parsed_preview,omitempty"`
	Meta          map[string]interface{} `db:"meta" json:"meta"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`

	// Steps is populated on detail reads, not on list queries.
	Steps []*TraceStep `db:"-" json:"steps,omitempty"`
}

// TraceStep is one entry of a log's ordered timeline. Append-only.
type TraceStep struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	TraceLogID uuid.UUID              `db:"trace_log_id" json:"trace_log_id"`
	Sequence   int                    `db:"sequence" json:"sequence"`
	StepName   string                 `db:"step_name" json:"step_name"`
	Status     string                 `db:"status" json:"status"`
	Message    string                 `db:"message" json:"message"`
	Details    map[string]interface{} `db:"details" json:"details"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// MessageType returns the message type from the parsed preview, falling
// back to the meta map, then to "-".
func (l *TraceLog) MessageType() string {
	if mt, ok := l.ParsedPreview["message_type"].(string); ok && mt != "" {
		return mt
	}
	if mt, ok := l.Meta["message_type"].(string); ok && mt != "" {
		return mt
	}
	return "-"
}

// SourceSystem returns the upstream system label from meta, or "-".
func (l *TraceLog) SourceSystem() string {
	if s, ok := l.Meta["source_system"].(string); ok && s != "" {
		return s
	}
	if s, ok := l.Meta["source"].(string); ok && s != "" {
		return s
	}
	return "-"
}

// ReviewRequired reports whether an analyst should look at this log: the
// processing failed, errors were counted, or any loaded step is WARN/ERROR.
func (l *TraceLog) ReviewRequired() bool {
	if l.Status == StatusFailed || l.ErrorCount > 0 {
		return true
	}
	return l.hasStepStatus(StepWarn) || l.hasStepStatus(StepError)
}

// ProcessingStatus is the analyst-facing status, derived from the internal
// status and the loaded steps.
func (l *TraceLog) ProcessingStatus() string {
	if l.Status == StatusFailed {
		return ProcessingFailed
	}
	if l.hasStepStatus(StepWarn) {
		return ProcessingWithWarnings
	}
	return ProcessingSuccess
}

// BusinessImpact classifies the log Low/Medium/High. A valid override in
// meta wins; otherwise ADT traffic needing review is High, anything else
// needing review is Medium.
func (l *TraceLog) BusinessImpact() string {
	if impact, ok := l.Meta["business_impact"].(string); ok {
		switch impact {
		case "Low", "Medium", "High":
			return impact
		}
	}

	review := l.ReviewRequired()
	if strings.HasPrefix(strings.ToUpper(l.MessageType()), "ADT") && review {
		return "High"
	}
	if review {
		return "Medium"
	}
	return "Low"
}

func (l *TraceLog) hasStepStatus(status string) bool {
	for _, s := range l.Steps {
		if s.Status == status {
			return true
		}
	}
	return false
}
