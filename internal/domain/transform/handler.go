package transform

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hl7bridge/hl7bridge/internal/platform/fhir"
	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
)

// Handler exposes the transformation pipeline over HTTP. The pipeline is
// pure, so the handler carries no dependencies beyond routing.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes mounts the HL7 endpoints on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hl7/transform", h.Transform)
	g.POST("/hl7/validate", h.Validate)
	g.POST("/hl7/summary", h.Summary)
}

type hl7Request struct {
	HL7Message string `json:"hl7_message"`
}

func (r *hl7Request) bind(c echo.Context) error {
	if err := c.Bind(r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if r.HL7Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hl7_message is required")
	}
	return nil
}

// Transform runs the full pipeline and returns the FHIR resources and
// billing documents derived from the message.
func (h *Handler) Transform(c echo.Context) error {
	var req hl7Request
	if err := req.bind(c); err != nil {
		return err
	}

	result, err := Transform(req.HL7Message)
	if err != nil {
		if errors.Is(err, ErrUnknownMessageType) || errors.Is(err, ErrUnsupportedMessageType) {
			return c.JSON(http.StatusUnprocessableEntity, fhir.ErrorOutcome(err.Error()))
		}
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}

	return c.JSON(http.StatusOK, renderResult(result))
}

// renderResult flattens a Result into the wire shape, with patient,
// encounter, report, and observations rendered as FHIR resource maps.
func renderResult(result *Result) map[string]interface{} {
	body := map[string]interface{}{
		"message_type":    result.MessageType,
		"message_profile": result.Profile,
		"trigger_event":   result.Trigger,
		"source_context":  result.Source,
		"raw_hl7":         result.RawHL7,
	}

	if result.Lab != nil {
		body["patient_id"] = result.Lab.PatientID
		body["report"] = result.Lab.ReportToFHIR()
		body["observations"] = result.Lab.ObservationsToFHIR()
		return body
	}

	if result.Patient != nil {
		body["patient"] = result.Patient.ToFHIR()
	}
	if result.Encounter != nil {
		body["encounter"] = result.Encounter.ToFHIR()
	}
	if result.Claim837 != "" {
		body["x12_837"] = result.Claim837
		body["x12_835"] = result.Remittance835
		body["claim_reconciliation"] = result.Reconciliation
	}
	return body
}

type validateResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate reports structural errors and warnings without transforming.
func (h *Handler) Validate(c echo.Context) error {
	var req hl7Request
	if err := req.bind(c); err != nil {
		return err
	}

	errs, warnings := hl7v2.Validate(req.HL7Message)
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return c.JSON(http.StatusOK, validateResponse{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	})
}

// Summary returns the lightweight triage summary of a message.
func (h *Handler) Summary(c echo.Context) error {
	var req hl7Request
	if err := req.bind(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hl7v2.Summarize(req.HL7Message))
}
