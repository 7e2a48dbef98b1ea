package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
)

// DefaultOutputType is the transform target recorded when the caller does
// not name one.
const DefaultOutputType = "FHIR_JSON"

const maxStepMessageLen = 255

// stepResult is an in-memory step before persistence assigns sequence
// numbers and row ids.
type stepResult struct {
	StepName string
	Status   string
	Message  string
	Details  map[string]interface{}
}

// IngestRequest is the input of one trace ingestion.
type IngestRequest struct {
	RawPayload   string
	DeclaredType string
	OutputType   string
	Meta         map[string]interface{}
}

// Engine runs the trace ingestion pipeline: classify, preview, validate,
// record transform intent, persist the ordered step timeline, finalize.
// Payload problems never fail an ingestion; only storage errors do.
type Engine struct {
	repo Repository
	log  zerolog.Logger
}

func NewEngine(repo Repository, logger zerolog.Logger) *Engine {
	return &Engine{repo: repo, log: logger}
}

// Ingest records one payload. Every invocation creates a new TraceLog with
// a fresh trace id, appends its steps with sequence numbers starting at 1,
// and finalizes the log exactly once. The returned log carries its steps.
// The measured duration brackets the whole call, classification included.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (*TraceLog, error) {
	start := time.Now()

	outputType := req.OutputType
	if outputType == "" {
		outputType = DefaultOutputType
	}
	meta := req.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}

	inputType := guessInputType(req.RawPayload, req.DeclaredType)

	log := &TraceLog{
		ID:         uuid.New(),
		TraceID:    newTraceID(),
		Timestamp:  start.UTC(),
		InputType:  inputType,
		OutputType: outputType,
		Status:     StatusReceived,
		Summary:    "Received payload",
		RawPayload: req.RawPayload,
		Meta:       meta,
	}
	if err := e.repo.CreateLog(ctx, log); err != nil {
		return nil, fmt.Errorf("trace: ingest: %w", err)
	}

	preview, steps := parsePreview(inputType, req.RawPayload)

	// HL7 preview warnings become analyst-visible validate steps.
	if inputType == InputHL7 {
		for _, w := range previewWarnings(preview) {
			steps = append(steps, stepResult{
				StepName: "validate",
				Status:   StepWarn,
				Message:  w,
				Details:  map[string]interface{}{"kind": "validation_warning"},
			})
		}
	}

	steps = append(steps, validatePayload(preview, inputType, req.RawPayload)...)

	if anyStatus(steps, StepError) {
		steps = append(steps, stepResult{
			StepName: "transform",
			Status:   StepWarn,
			Message:  "Transform skipped due to prior errors",
			Details:  map[string]interface{}{"target": outputType},
		})
		log.Status = StatusFailed
	} else {
		steps = append(steps, stepResult{
			StepName: "transform",
			Status:   StepOK,
			Message:  "Transform planned",
			Details:  map[string]interface{}{"path": inputType + " -> " + outputType},
		})
		log.Status = StatusProcessed
	}

	errorCount := 0
	for i, s := range steps {
		if s.Status == StepError {
			errorCount++
		}
		step := &TraceStep{
			ID:         uuid.New(),
			TraceLogID: log.ID,
			Sequence:   i + 1,
			StepName:   s.StepName,
			Status:     s.Status,
			Message:    truncate(s.Message, maxStepMessageLen),
			Details:    s.Details,
		}
		if err := e.repo.AppendStep(ctx, step); err != nil {
			return nil, fmt.Errorf("trace: ingest: %w", err)
		}
		log.Steps = append(log.Steps, step)
	}

	normalizeMeta(log.Meta, preview, inputType)

	log.ParsedPreview = preview
	log.ErrorCount = errorCount
	log.Summary = buildSummary(inputType, preview, log.Status, errorCount)
	duration := int(time.Since(start).Milliseconds())
	log.DurationMS = &duration

	if err := e.repo.UpdateLog(ctx, log); err != nil {
		return nil, fmt.Errorf("trace: ingest: %w", err)
	}

	e.log.Info().
		Str("trace_id", log.TraceID).
		Str("input_type", inputType).
		Str("status", log.Status).
		Int("error_count", errorCount).
		Msg("payload ingested")

	return log, nil
}

func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// guessInputType classifies a payload. A valid declared type always wins;
// otherwise a leading brace/bracket means JSON, an MSH segment anywhere
// means HL7, and an ISA envelope or a *00* element means EDI.
func guessInputType(rawPayload, declared string) string {
	switch declared {
	case InputHL7, InputJSON, InputEDI:
		return declared
	}
	s := strings.TrimSpace(rawPayload)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return InputJSON
	}
	if strings.Contains(rawPayload, "MSH|") {
		return InputHL7
	}
	if strings.HasPrefix(s, "ISA") || strings.Contains(s, "*00*") {
		return InputEDI
	}
	return InputOther
}

// parsePreview extracts a small, redacted preview per input type. It never
// fails: parse problems are reported as an error step with a fallback
// preview so the timeline stays intact.
func parsePreview(inputType, rawPayload string) (map[string]interface{}, []stepResult) {
	switch inputType {
	case InputJSON:
		return parseJSONPreview(rawPayload)
	case InputHL7:
		return parseHL7Preview(rawPayload)
	case InputEDI:
		preview := map[string]interface{}{
			"type":    InputEDI,
			"has_ISA": strings.HasPrefix(strings.TrimSpace(rawPayload), "ISA"),
			"len":     len(rawPayload),
		}
		return preview, []stepResult{{
			StepName: "parse",
			Status:   StepOK,
			Message:  "EDI envelope preview extracted",
			Details:  map[string]interface{}{"preview": preview},
		}}
	}

	preview := map[string]interface{}{"type": InputOther, "len": len(rawPayload)}
	return preview, []stepResult{{
		StepName: "parse",
		Status:   StepWarn,
		Message:  "Unknown input type; stored as raw",
		Details:  map[string]interface{}{"preview": preview},
	}}
}

func parseJSONPreview(rawPayload string) (map[string]interface{}, []stepResult) {
	var obj interface{}
	if err := json.Unmarshal([]byte(rawPayload), &obj); err != nil {
		return jsonParseFailure(err.Error())
	}

	var preview map[string]interface{}
	switch v := obj.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 20 {
			keys = keys[:20]
		}
		preview = map[string]interface{}{"type": InputJSON, "keys": keys}
	case []interface{}:
		preview = map[string]interface{}{"type": InputJSON, "kind": "list", "len": len(v)}
	default:
		return jsonParseFailure("JSON value is not an object or array")
	}

	return preview, []stepResult{{
		StepName: "parse",
		Status:   StepOK,
		Message:  "JSON parsed",
		Details:  map[string]interface{}{"preview": preview},
	}}
}

func jsonParseFailure(reason string) (map[string]interface{}, []stepResult) {
	preview := map[string]interface{}{
		"type":         InputJSON,
		"message_type": "",
		"warnings":     []string{"Preview parse failed"},
	}
	return preview, []stepResult{{
		StepName: "parse",
		Status:   StepError,
		Message:  "Parsing failed",
		Details:  map[string]interface{}{"error": reason},
	}}
}

func parseHL7Preview(rawPayload string) (map[string]interface{}, []stepResult) {
	msh := hl7v2.Segment(splitFields(hl7v2.FirstLineWithPrefix(rawPayload, "MSH|")))
	pid := hl7v2.Segment(splitFields(hl7v2.FirstLineWithPrefix(rawPayload, "PID|")))

	patientID := pid.Field(3)
	dob := pid.Field(7)

	warnings := []string{}
	if strings.TrimSpace(patientID) == "" {
		warnings = append(warnings, "Missing PID-3 Patient Identifier")
	}
	if dob != "" && !isEightDigits(dob) {
		warnings = append(warnings, "Invalid PID-7 DOB format (expected YYYYMMDD)")
	}

	preview := map[string]interface{}{
		"type":               InputHL7,
		"segment":            "MSH",
		"message_type":       msh.Field(8),
		"sending_app":        msh.Field(2),
		"sending_facility":   msh.Field(3),
		"receiving_app":      msh.Field(4),
		"receiving_facility": msh.Field(5),
		"message_control_id": msh.Field(9),
		"patient_id":         patientID,
		"dob":                dob,
		"warnings":           warnings,
	}
	return preview, []stepResult{{
		StepName: "parse",
		Status:   StepOK,
		Message:  "HL7 preview extracted (MSH/PID)",
		Details:  map[string]interface{}{"preview": preview},
	}}
}

func splitFields(line string) []string {
	if line == "" {
		return nil
	}
	return strings.Split(line, hl7v2.FieldSeparator)
}

func isEightDigits(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validatePayload runs per-type structural checks. Failures are aggregated
// into a single error step listing every failed check.
func validatePayload(preview map[string]interface{}, inputType, rawPayload string) []stepResult {
	var errors []string

	switch inputType {
	case InputHL7:
		if !strings.Contains(rawPayload, "MSH|") {
			errors = append(errors, "Missing MSH segment")
		}
	case InputJSON:
		_, hasKeys := preview["keys"]
		_, hasKind := preview["kind"]
		if !hasKeys && !hasKind {
			errors = append(errors, "JSON preview missing or invalid (parse likely failed)")
		}
	case InputEDI:
		if !strings.HasPrefix(strings.TrimSpace(rawPayload), "ISA") {
			errors = append(errors, "Missing ISA segment")
		}
	}

	if len(errors) > 0 {
		return []stepResult{{
			StepName: "validate",
			Status:   StepError,
			Message:  "Validation errors found",
			Details:  map[string]interface{}{"errors": errors},
		}}
	}
	return []stepResult{{
		StepName: "validate",
		Status:   StepOK,
		Message:  "Validation passed",
		Details:  map[string]interface{}{},
	}}
}

// normalizeMeta fills source_system and message_type so analysts can
// filter. A source derived from the MSH header wins over UI placeholders.
func normalizeMeta(meta, preview map[string]interface{}, inputType string) {
	rawSource := strings.TrimSpace(metaString(meta, "source_system"))
	if rawSource == "" {
		rawSource = strings.TrimSpace(metaString(meta, "source"))
	}

	var app, fac string
	if inputType == InputHL7 {
		app = strings.TrimSpace(previewString(preview, "sending_app"))
		fac = strings.TrimSpace(previewString(preview, "sending_facility"))
	}
	derived := ""
	if app != "" || fac != "" {
		if app == "" {
			app = "UNKNOWN_APP"
		}
		if fac == "" {
			fac = "UNKNOWN_FAC"
		}
		derived = app + ":" + fac
	}

	if rawSource == "" || isUIPlaceholder(rawSource) {
		if derived != "" {
			meta["source_system"] = derived
		} else {
			meta["source_system"] = "unknown"
		}
	} else {
		meta["source_system"] = rawSource
	}

	if inputType == InputHL7 {
		if mt := previewString(preview, "message_type"); mt != "" {
			if _, ok := meta["message_type"]; !ok {
				meta["message_type"] = mt
			}
		}
	}
}

func isUIPlaceholder(source string) bool {
	switch strings.ToLower(source) {
	case "trace_ui", "ui", "web":
		return true
	}
	return false
}

func buildSummary(inputType string, preview map[string]interface{}, status string, errorCount int) string {
	base := inputType + " " + status
	if inputType == InputHL7 {
		if mt := previewString(preview, "message_type"); mt != "" {
			base += " (" + mt + ")"
		}
	}
	if errorCount > 0 {
		base += fmt.Sprintf(" - %d error(s)", errorCount)
	}
	return base
}

func previewWarnings(preview map[string]interface{}) []string {
	if w, ok := preview["warnings"].([]string); ok {
		return w
	}
	return nil
}

func previewString(preview map[string]interface{}, key string) string {
	s, _ := preview[key].(string)
	return s
}

func metaString(meta map[string]interface{}, key string) string {
	s, _ := meta[key].(string)
	return s
}

func anyStatus(steps []stepResult, status string) bool {
	for _, s := range steps {
		if s.Status == status {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
