package trace

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	engine := NewEngine(repo, zerolog.Nop())
	return NewHandler(engine, repo), repo
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, target, body string, pathParams map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range pathParams {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestHandlerIngest(t *testing.T) {
	h, repo := newTestHandler()

	rec := doRequest(t, h.Ingest, http.MethodPost, "/traces/ingest",
		`{"raw_payload":"{\"a\":1}","meta":{"source_system":"LAB-GW"}}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.TraceID == "" {
		t.Error("expected trace_id in response")
	}
	if len(repo.logs) != 1 || len(repo.steps) != 3 {
		t.Errorf("persisted %d logs / %d steps", len(repo.logs), len(repo.steps))
	}
}

func TestHandlerIngestRequiresPayload(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(t, h.Ingest, http.MethodPost, "/traces/ingest", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerListTraces(t *testing.T) {
	h, _ := newTestHandler()

	ingest := doRequest(t, h.Ingest, http.MethodPost, "/traces/ingest",
		`{"raw_payload":"not anything structured"}`, nil)
	if ingest.Code != http.StatusCreated {
		t.Fatal(ingest.Body.String())
	}

	rec := doRequest(t, h.ListTraces, http.MethodGet, "/traces", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Data  []map[string]interface{} `json:"data"`
		Total int                      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Data) != 1 {
		t.Fatalf("body = %+v", body)
	}
	item := body.Data[0]
	if item["input_type"] != "OTHER" {
		t.Errorf("input_type = %v", item["input_type"])
	}
	if item["source_system"] != "unknown" {
		t.Errorf("source_system = %v", item["source_system"])
	}
	if _, ok := item["steps"]; ok {
		t.Error("list items must not include steps")
	}
}

func TestHandlerGetTrace(t *testing.T) {
	h, _ := newTestHandler()

	ingest := doRequest(t, h.Ingest, http.MethodPost, "/traces/ingest",
		`{"raw_payload":"{not json"}`, nil)
	var created ingestResponse
	if err := json.Unmarshal(ingest.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h.GetTrace, http.MethodGet, "/traces/"+created.TraceID, "",
		map[string]string{"trace_id": created.TraceID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != StatusFailed {
		t.Errorf("status = %v", body["status"])
	}
	if body["processing_status"] != ProcessingFailed {
		t.Errorf("processing_status = %v", body["processing_status"])
	}
	if body["review_required"] != true {
		t.Errorf("review_required = %v", body["review_required"])
	}
	steps, ok := body["steps"].([]interface{})
	if !ok || len(steps) != 3 {
		t.Errorf("steps = %v", body["steps"])
	}
}

func TestHandlerGetTraceNotFound(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(t, h.GetTrace, http.MethodGet, "/traces/missing", "",
		map[string]string{"trace_id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

var _ Repository = (*mockRepo)(nil)
var _ Repository = (*RepoPG)(nil)
