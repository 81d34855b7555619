package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

func TestExportWritesOneRowPerCase(t *testing.T) {
	cases := []domain.VerificationCase{
		{
			ID:     "case-1",
			Status: domain.StatusVerified,
			Fields: domain.DocumentFields{Name: "RAM BAHADUR THAPA", DocumentNumber: "12-01-75-00123"},
			Face:   domain.FaceMatch{Checked: true, Matched: true, Similarity: 0.92},
			Fraud:  domain.FraudAssessment{Score: 0, Risk: domain.RiskLow},
			CreatedAt: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:     "case-2",
			Status: domain.StatusRejected,
			Fraud:  domain.FraudAssessment{Score: 85, Risk: domain.RiskHigh, Indicators: []string{"Face verification failed"}},
			CreatedAt: time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC),
		},
	}

	raw, err := NewXLSXExporter().Export(cases)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Case ID" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	if rows[1][0] != "case-1" || rows[1][6] != "match" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][1] != "rejected" || rows[2][10] != "Face verification failed" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestExportEmptyListStillProducesWorkbook(t *testing.T) {
	raw, err := NewXLSXExporter().Export(nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
