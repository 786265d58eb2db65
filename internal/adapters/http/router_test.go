package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

type fakeSearcher struct {
	results []domain.RetrievalResult
	err     error
	gotReq  domain.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req domain.SearchRequest) ([]domain.RetrievalResult, error) {
	f.gotReq = req
	return f.results, f.err
}

type fakeAnswerer struct {
	answer  string
	sources []domain.RetrievalResult
	err     error
}

func (f *fakeAnswerer) Answer(_ context.Context, _ domain.SearchRequest) (string, []domain.RetrievalResult, error) {
	return f.answer, f.sources, f.err
}

type fakeQueue struct {
	published []domain.IngestRequest
	err       error
}

func (f *fakeQueue) PublishIngestRequest(_ context.Context, req domain.IngestRequest) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, req)
	return nil
}

func (f *fakeQueue) SubscribeIngestRequests(context.Context, func(context.Context, domain.IngestRequest) error) error {
	return nil
}

type fakeRunRepo struct {
	created []domain.IngestionRun
	runs    []domain.IngestionRun
	err     error
}

func (f *fakeRunRepo) CreateRun(_ context.Context, run domain.IngestionRun) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRunRepo) FinishRun(context.Context, string, string, *domain.IngestionStats) error {
	return f.err
}

func (f *fakeRunRepo) GetRun(_ context.Context, id string) (domain.IngestionRun, error) {
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return domain.IngestionRun{}, domain.WrapError(domain.ErrRunNotFound, "get run", errors.New("missing"))
}

func (f *fakeRunRepo) ListRuns(context.Context, int) ([]domain.IngestionRun, error) {
	return f.runs, f.err
}

func newTestRouter(searcher *fakeSearcher, answerer *fakeAnswerer, queue *fakeQueue, runs *fakeRunRepo) http.Handler {
	return NewRouter(searcher, answerer, queue, runs, nil, nil).Handler()
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"   "}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearchReturnsResultsAndCount(t *testing.T) {
	searcher := &fakeSearcher{
		results: []domain.RetrievalResult{
			{Content: "revenue grew 12%", Score: 0.92, RetrievalMethod: domain.MethodHybrid},
			{Content: "ebitda margin held", Score: 0.71, RetrievalMethod: domain.MethodHybrid},
		},
	}
	handler := newTestRouter(searcher, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	body := `{"query":"revenue trend","category":"financial","company_id":"BBD","top_k":5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if searcher.gotReq.Category != "financial" || searcher.gotReq.CompanyID != "BBD" || searcher.gotReq.TopK != 5 {
		t.Fatalf("unexpected search request: %+v", searcher.gotReq)
	}

	var resp struct {
		Count   int                      `json:"count"`
		Results []domain.RetrievalResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got count=%d len=%d", resp.Count, len(resp.Results))
	}
}

func TestAnswerReturnsSources(t *testing.T) {
	answerer := &fakeAnswerer{
		answer: "Revenue grew 12% year over year.",
		sources: []domain.RetrievalResult{
			{Content: "revenue grew 12%", Score: 0.92},
		},
	}
	handler := newTestRouter(&fakeSearcher{}, answerer, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(`{"query":"revenue trend"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Answer  string                   `json:"answer"`
		Sources []domain.RetrievalResult `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != answerer.answer {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(resp.Sources))
	}
}

func TestStartIngestCreatesRunAndPublishes(t *testing.T) {
	queue := &fakeQueue{}
	runs := &fakeRunRepo{}
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, queue, runs)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(`{"root":"/data/room","recursive":true}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(runs.created) != 1 {
		t.Fatalf("expected 1 created run, got %d", len(runs.created))
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected 1 published request, got %d", len(queue.published))
	}
	if queue.published[0].RunID != runs.created[0].ID {
		t.Fatalf("published run id %q does not match created run %q", queue.published[0].RunID, runs.created[0].ID)
	}
	if !queue.published[0].Recursive {
		t.Fatalf("expected recursive flag to propagate")
	}
}

func TestStartIngestRequiresRoot(t *testing.T) {
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader(`{"recursive":true}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRunReturns404WhenMissing(t *testing.T) {
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/does-not-exist", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRunsRejectsMalformedLimit(t *testing.T) {
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=minus-one", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected %s header to be set", requestIDHeader)
	}
}

func TestAccessLogRecordsRequestOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := NewRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{}, nil, logger).Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-log-1")
	handler.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "request_served") {
		t.Fatalf("access log line missing:\n%s", out)
	}
	if !strings.Contains(out, `"request_id":"req-log-1"`) {
		t.Fatalf("request id missing from access log:\n%s", out)
	}
	if !strings.Contains(out, `"path":"/healthz"`) || !strings.Contains(out, `"status":200`) {
		t.Fatalf("path or status missing from access log:\n%s", out)
	}
}

func TestAccessLogEscalatesLevelForErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := NewRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{}, nil, logger).Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":""}`))
	handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Fatalf("client error should log at warn:\n%s", buf.String())
	}
}

func TestRequestIDHeaderIsPropagated(t *testing.T) {
	handler := newTestRouter(&fakeSearcher{}, &fakeAnswerer{}, &fakeQueue{}, &fakeRunRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}
