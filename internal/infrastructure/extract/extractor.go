// Package extract turns a stored identity document into raw text. PDF
// uploads are read through their embedded text layer; image uploads go
// through a pluggable OCR engine.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/core/ports"
)

// Engine recognizes text in a single document image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Extractor struct {
	storage ports.ObjectStorage
	engine  Engine
}

func NewExtractor(storage ports.ObjectStorage, engine Engine) *Extractor {
	return &Extractor{storage: storage, engine: engine}
}

func (e *Extractor) Extract(ctx context.Context, kycCase *domain.VerificationCase) (string, error) {
	reader, err := e.storage.Open(ctx, kycCase.DocumentPath)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	if strings.EqualFold(kycCase.DocumentMime, "application/pdf") {
		return pdfText(raw)
	}

	if e.engine == nil {
		return "", fmt.Errorf("no OCR engine configured for %s", kycCase.DocumentMime)
	}
	text, err := e.engine.Recognize(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%s ocr: %w", e.engine.Name(), err)
	}
	return strings.TrimSpace(text), nil
}

func pdfText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text layer: %w", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text layer: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}
