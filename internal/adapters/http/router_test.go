package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

type submitterFake struct {
	got     domain.Submission
	kycCase *domain.VerificationCase
	err     error
}

func (s *submitterFake) Submit(_ context.Context, req domain.Submission) (*domain.VerificationCase, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.kycCase, nil
}

type readerFake struct {
	kycCase *domain.VerificationCase
	report  string
	cases   []domain.VerificationCase
	err     error
}

func (r *readerFake) GetByID(context.Context, string) (*domain.VerificationCase, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.kycCase, nil
}

func (r *readerFake) GetReport(context.Context, string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.report, nil
}

func (r *readerFake) ListRecent(context.Context, int) ([]domain.VerificationCase, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.cases, nil
}

type exporterFake struct {
	got      []domain.VerificationCase
	workbook []byte
}

func (e *exporterFake) Export(cases []domain.VerificationCase) ([]byte, error) {
	e.got = cases
	return e.workbook, nil
}

func newTestRouter(submitter *submitterFake, reader *readerFake, exporter *exporterFake) http.Handler {
	if submitter == nil {
		submitter = &submitterFake{kycCase: &domain.VerificationCase{ID: "case-1"}}
	}
	if reader == nil {
		reader = &readerFake{kycCase: &domain.VerificationCase{ID: "case-1"}}
	}
	if exporter == nil {
		exporter = &exporterFake{workbook: []byte("xlsx")}
	}
	return NewRouter(submitter, reader, exporter, Options{}).Handler()
}

func multipartBody(t *testing.T, fields map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, content := range fields {
		part, err := writer.CreateFormFile(field, field+".jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestSubmitCaseAccepted(t *testing.T) {
	submitter := &submitterFake{kycCase: &domain.VerificationCase{ID: "case-1", Status: domain.StatusSubmitted}}
	handler := newTestRouter(submitter, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{
		"document": []byte("doc-bytes"),
		"selfie":   []byte("selfie-bytes"),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/verifications", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var got domain.VerificationCase
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "case-1" || got.Status != domain.StatusSubmitted {
		t.Fatalf("unexpected case: %+v", got)
	}
	if string(submitter.got.Document) != "doc-bytes" || string(submitter.got.Selfie) != "selfie-bytes" {
		t.Fatalf("submission payload mangled: %+v", submitter.got)
	}
}

func TestSubmitCaseRequiresBothImages(t *testing.T) {
	handler := newTestRouter(nil, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{"document": []byte("doc")})
	req := httptest.NewRequest(http.MethodPost, "/v1/verifications", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSubmitCaseMapsInvalidInput(t *testing.T) {
	submitter := &submitterFake{err: domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("image too small"))}
	handler := newTestRouter(submitter, nil, nil)

	body, contentType := multipartBody(t, map[string][]byte{
		"document": []byte("doc"),
		"selfie":   []byte("selfie"),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/verifications", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetCaseNotFound(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrCaseNotFound, "get", errors.New("case missing"))}
	handler := newTestRouter(nil, reader, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/verifications/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetReportIsPlainText(t *testing.T) {
	reader := &readerFake{report: "KYC Verification Results\n"}
	handler := newTestRouter(nil, reader, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/verifications/case-1/report", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if res.Body.String() != "KYC Verification Results\n" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestExportReturnsWorkbook(t *testing.T) {
	reader := &readerFake{cases: []domain.VerificationCase{{ID: "case-1"}, {ID: "case-2"}}}
	exporter := &exporterFake{workbook: []byte("workbook-bytes")}
	handler := newTestRouter(nil, reader, exporter)

	req := httptest.NewRequest(http.MethodGet, "/v1/verifications/export", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(exporter.got) != 2 {
		t.Fatalf("exporter received %d cases", len(exporter.got))
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if res.Body.String() != "workbook-bytes" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestExportRejectsBadLimit(t *testing.T) {
	handler := newTestRouter(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/verifications/export?limit=zero", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	reader := &readerFake{kycCase: &domain.VerificationCase{ID: "case-1"}}
	handler := NewRouter(&submitterFake{}, reader, &exporterFake{}, Options{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}).Handler()

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated gate, got %d", res2.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(res2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if fmt.Sprint(resp["error"]) == "" {
		t.Fatal("expected overload error message")
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first request completion")
	}
}
