// Package vision implements document OCR on the Google Cloud Vision API.
package vision

import (
	"bytes"
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/apiv1"
	"google.golang.org/api/option"
)

type Engine struct {
	client *vision.ImageAnnotatorClient
}

// NewEngine dials the Vision API. credentialsFile may be empty, in which
// case application default credentials are used.
func NewEngine(ctx context.Context, credentialsFile string) (*Engine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &Engine{client: client}, nil
}

func (e *Engine) Name() string { return "google-vision" }

func (e *Engine) Close() error { return e.client.Close() }

// Recognize runs dense-text document detection and falls back to plain text
// detection when the document model finds nothing. ID cards with sparse
// print sometimes only show up in the plain detector.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	img, err := vision.NewImageFromReader(bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("build vision image: %w", err)
	}

	annotation, err := e.client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return "", fmt.Errorf("detect document text: %w", err)
	}
	if annotation != nil && annotation.Text != "" {
		return annotation.Text, nil
	}

	texts, err := e.client.DetectTexts(ctx, img, nil, 1)
	if err != nil {
		return "", fmt.Errorf("detect texts: %w", err)
	}
	if len(texts) == 0 {
		return "", nil
	}
	return texts[0].Description, nil
}
