// Package httpadapter exposes the verification service over HTTP: case
// submission, status and report reads, and a spreadsheet export for
// compliance.
package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/core/ports"
	"github.com/onboardkit/kyc-agent/internal/observability/metrics"
)

const serviceName = "kyc-api"

// CaseExporter renders a batch of cases into a downloadable workbook.
type CaseExporter interface {
	Export(cases []domain.VerificationCase) ([]byte, error)
}

type Options struct {
	MaxUploadBytes        int64
	RateLimitRPS          float64
	RateLimitBurst        int
	MaxConcurrentRequests int
	Metrics               *metrics.HTTPServerMetrics
}

type Router struct {
	submitter ports.CaseSubmitter
	reader    ports.CaseReader
	exporter  CaseExporter
	opts      Options
}

func NewRouter(submitter ports.CaseSubmitter, reader ports.CaseReader, exporter CaseExporter, opts Options) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Router{
		submitter: submitter,
		reader:    reader,
		exporter:  exporter,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/verifications", rt.submitCase)
	mux.HandleFunc("/v1/verifications/", rt.caseSubresource)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.opts.MaxConcurrentRequests > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxConcurrentRequests, 50*time.Millisecond)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitCase accepts a multipart form with the identity document and the
// selfie and answers 202 with the created case. Processing happens in the
// worker.
func (rt *Router) submitCase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)

	document, documentName, documentMime, err := rt.formImage(r, "document")
	if err != nil {
		rt.recordSubmission("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	selfie, selfieName, selfieMime, err := rt.formImage(r, "selfie")
	if err != nil {
		rt.recordSubmission("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	kycCase, err := rt.submitter.Submit(r.Context(), domain.Submission{
		Document:     document,
		DocumentName: documentName,
		DocumentMime: documentMime,
		Selfie:       selfie,
		SelfieName:   selfieName,
		SelfieMime:   selfieMime,
	})
	if err != nil {
		rt.recordSubmission("rejected")
		writeError(w, err)
		return
	}

	rt.recordSubmission("accepted")
	writeJSON(w, http.StatusAccepted, kycCase)
}

// caseSubresource routes /v1/verifications/{id}, .../{id}/report and
// .../export.
func (rt *Router) caseSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/verifications/")
	switch {
	case rest == "export":
		rt.exportCases(w, r)
	case strings.HasSuffix(rest, "/report"):
		rt.getReport(w, r, strings.TrimSuffix(rest, "/report"))
	default:
		rt.getCase(w, r, rest)
	}
}

func (rt *Router) getCase(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "case id is required"})
		return
	}

	kycCase, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kycCase)
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "case id is required"})
		return
	}

	report, err := rt.reader.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report)
}

func (rt *Router) exportCases(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	cases, err := rt.reader.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	workbook, err := rt.exporter.Export(cases)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("verifications-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (rt *Router) formImage(r *http.Request, field string) (data []byte, name, mime string, err error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", "", fmt.Errorf("multipart field %q is required", field)
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", "", fmt.Errorf("read %q upload: %w", field, err)
	}
	return data, header.Filename, header.Header.Get("Content-Type"), nil
}

func (rt *Router) recordSubmission(outcome string) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordSubmission(serviceName, outcome)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
