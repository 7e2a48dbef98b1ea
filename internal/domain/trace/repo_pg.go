package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepoPG is the PostgreSQL repository for trace logs and steps.
type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

const logCols = `id, trace_id, timestamp, input_type, output_type, status, summary,
	error_count, duration_ms, raw_payload, parsed_preview, meta, created_at`

func scanLog(row pgx.Row) (*TraceLog, error) {
	var l TraceLog
	var preview, meta []byte
	err := row.Scan(
		&l.ID, &l.TraceID, &l.Timestamp, &l.InputType, &l.OutputType, &l.Status,
		&l.Summary, &l.ErrorCount, &l.DurationMS, &l.RawPayload, &preview, &meta,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(preview) > 0 {
		if err := json.Unmarshal(preview, &l.ParsedPreview); err != nil {
			return nil, fmt.Errorf("trace: decode parsed_preview: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &l.Meta); err != nil {
			return nil, fmt.Errorf("trace: decode meta: %w", err)
		}
	}
	return &l, nil
}

func (r *RepoPG) CreateLog(ctx context.Context, log *TraceLog) error {
	preview, meta, err := encodeLogJSON(log)
	if err != nil {
		return err
	}

	q := `INSERT INTO trace_log (id, trace_id, timestamp, input_type, output_type, status,
		summary, error_count, duration_ms, raw_payload, parsed_preview, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())`
	_, err = r.pool.Exec(ctx, q,
		log.ID, log.TraceID, log.Timestamp, log.InputType, log.OutputType, log.Status,
		log.Summary, log.ErrorCount, log.DurationMS, log.RawPayload, preview, meta,
	)
	if err != nil {
		return fmt.Errorf("trace: create log: %w", err)
	}
	return nil
}

func (r *RepoPG) UpdateLog(ctx context.Context, log *TraceLog) error {
	preview, meta, err := encodeLogJSON(log)
	if err != nil {
		return err
	}

	q := `UPDATE trace_log SET status = $2, summary = $3, error_count = $4,
		duration_ms = $5, parsed_preview = $6, meta = $7 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q,
		log.ID, log.Status, log.Summary, log.ErrorCount, log.DurationMS, preview, meta,
	)
	if err != nil {
		return fmt.Errorf("trace: update log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trace: update log: no row with id %s", log.ID)
	}
	return nil
}

func (r *RepoPG) AppendStep(ctx context.Context, step *TraceStep) error {
	details, err := json.Marshal(orEmpty(step.Details))
	if err != nil {
		return fmt.Errorf("trace: encode step details: %w", err)
	}

	q := `INSERT INTO trace_step (id, trace_log_id, sequence, step_name, status, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`
	_, err = r.pool.Exec(ctx, q,
		step.ID, step.TraceLogID, step.Sequence, step.StepName, step.Status, step.Message, details,
	)
	if err != nil {
		return fmt.Errorf("trace: append step: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByTraceID(ctx context.Context, traceID string) (*TraceLog, error) {
	q := fmt.Sprintf("SELECT %s FROM trace_log WHERE trace_id = $1", logCols)
	return scanLog(r.pool.QueryRow(ctx, q, traceID))
}

func (r *RepoPG) ListSteps(ctx context.Context, traceLogID uuid.UUID) ([]*TraceStep, error) {
	q := `SELECT id, trace_log_id, sequence, step_name, status, message, details, created_at
		FROM trace_step WHERE trace_log_id = $1 ORDER BY sequence`
	rows, err := r.pool.Query(ctx, q, traceLogID)
	if err != nil {
		return nil, fmt.Errorf("trace: list steps: %w", err)
	}
	defer rows.Close()

	var steps []*TraceStep
	for rows.Next() {
		var s TraceStep
		var details []byte
		if err := rows.Scan(&s.ID, &s.TraceLogID, &s.Sequence, &s.StepName, &s.Status, &s.Message, &details, &s.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &s.Details); err != nil {
				return nil, fmt.Errorf("trace: decode step details: %w", err)
			}
		}
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}

func (r *RepoPG) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*TraceLog, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if params.InputType != "" {
		where = append(where, fmt.Sprintf("input_type = $%d", idx))
		args = append(args, params.InputType)
		idx++
	}
	if params.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, params.Status)
		idx++
	}
	if params.HasErrors != nil {
		if *params.HasErrors {
			where = append(where, "error_count > 0")
		} else {
			where = append(where, "error_count = 0")
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM trace_log %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("trace: count logs: %w", err)
	}

	q := fmt.Sprintf("SELECT %s FROM trace_log %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d",
		logCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("trace: search logs: %w", err)
	}
	defer rows.Close()

	var logs []*TraceLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func encodeLogJSON(log *TraceLog) (preview, meta []byte, err error) {
	preview, err = json.Marshal(orEmpty(log.ParsedPreview))
	if err != nil {
		return nil, nil, fmt.Errorf("trace: encode parsed_preview: %w", err)
	}
	meta, err = json.Marshal(orEmpty(log.Meta))
	if err != nil {
		return nil, nil, fmt.Errorf("trace: encode meta: %w", err)
	}
	return preview, meta, nil
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
