package trace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hl7bridge/hl7bridge/pkg/pagination"
)

// Handler exposes trace ingestion and querying over HTTP.
type Handler struct {
	engine *Engine
	repo   Repository
}

func NewHandler(engine *Engine, repo Repository) *Handler {
	return &Handler{engine: engine, repo: repo}
}

// RegisterRoutes mounts the trace endpoints on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/traces/ingest", h.Ingest)
	g.GET("/traces", h.ListTraces)
	g.GET("/traces/:trace_id", h.GetTrace)
}

type ingestRequest struct {
	RawPayload string                 `json:"raw_payload"`
	InputType  string                 `json:"input_type,omitempty"`
	OutputType string                 `json:"output_type,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

type ingestResponse struct {
	TraceID string `json:"trace_id"`
}

// Ingest records one payload and returns its trace id.
func (h *Handler) Ingest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RawPayload == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "raw_payload is required")
	}

	log, err := h.engine.Ingest(c.Request().Context(), IngestRequest{
		RawPayload:   req.RawPayload,
		DeclaredType: req.InputType,
		OutputType:   req.OutputType,
		Meta:         req.Meta,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, ingestResponse{TraceID: log.TraceID})
}

// listItem is the list-view shape of a log: raw payload and step timeline
// omitted, analyst fields precomputed.
type listItem struct {
	*TraceLog
	RawPayload     string       `json:"raw_payload,omitempty"`
	Steps          []*TraceStep `json:"steps,omitempty"`
	MessageType    string       `json:"message_type"`
	SourceSystem   string       `json:"source_system"`
	ReviewRequired bool         `json:"review_required"`
}

// ListTraces returns logs newest first, filterable by input_type, status,
// and has_errors (true/1 or false/0).
func (h *Handler) ListTraces(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := SearchParams{
		InputType: c.QueryParam("input_type"),
		Status:    c.QueryParam("status"),
	}
	switch c.QueryParam("has_errors") {
	case "true", "1":
		yes := true
		params.HasErrors = &yes
	case "false", "0":
		no := false
		params.HasErrors = &no
	}

	logs, total, err := h.repo.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := make([]listItem, 0, len(logs))
	for _, l := range logs {
		items = append(items, listItem{
			TraceLog:       l,
			MessageType:    l.MessageType(),
			SourceSystem:   l.SourceSystem(),
			ReviewRequired: l.ReviewRequired(),
		})
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type traceDetail struct {
	*TraceLog
	MessageType      string `json:"message_type"`
	SourceSystem     string `json:"source_system"`
	ReviewRequired   bool   `json:"review_required"`
	ProcessingStatus string `json:"processing_status"`
	BusinessImpact   string `json:"business_impact"`
}

// GetTrace returns one log with its full step timeline and the derived
// analyst fields.
func (h *Handler) GetTrace(c echo.Context) error {
	traceID := c.Param("trace_id")

	log, err := h.repo.GetByTraceID(c.Request().Context(), traceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "trace not found")
	}

	steps, err := h.repo.ListSteps(c.Request().Context(), log.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	log.Steps = steps

	return c.JSON(http.StatusOK, traceDetail{
		TraceLog:         log,
		MessageType:      log.MessageType(),
		SourceSystem:     log.SourceSystem(),
		ReviewRequired:   log.ReviewRequired(),
		ProcessingStatus: log.ProcessingStatus(),
		BusinessImpact:   log.BusinessImpact(),
	})
}
