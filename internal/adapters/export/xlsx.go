// Package export renders verification cases into spreadsheet form for
// compliance review.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

const sheetName = "Verifications"

type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Export produces an XLSX workbook with one row per case, newest first as
// provided by the caller.
func (e *XLSXExporter) Export(cases []domain.VerificationCase) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{
		"Case ID", "Status", "Name", "Document Number", "Date Of Birth",
		"Nationality", "Face Match", "Similarity", "Fraud Score", "Risk",
		"Indicators", "Submitted At",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, kycCase := range cases {
		values := []any{
			kycCase.ID,
			string(kycCase.Status),
			kycCase.Fields.Name,
			kycCase.Fields.DocumentNumber,
			kycCase.Fields.DateOfBirth,
			kycCase.Fields.Nationality,
			faceLabel(kycCase.Face),
			kycCase.Face.Similarity,
			kycCase.Fraud.Score,
			string(kycCase.Fraud.Risk),
			strings.Join(kycCase.Fraud.Indicators, "; "),
			kycCase.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func faceLabel(face domain.FaceMatch) string {
	switch {
	case !face.Checked:
		return "not checked"
	case face.Matched:
		return "match"
	default:
		return "mismatch"
	}
}
