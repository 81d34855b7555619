package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func flatImage(w, h int, level uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img
}

func checkerboard(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestValidateAcceptsLargeEnoughImage(t *testing.T) {
	checker := NewChecker(400, 400)
	data := encodePNG(t, flatImage(400, 400, 128))

	if err := checker.Validate(data, "image/png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsSmallImage(t *testing.T) {
	checker := NewChecker(400, 400)
	data := encodePNG(t, flatImage(200, 200, 128))

	err := checker.Validate(data, "image/png")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	checker := NewChecker(0, 0)

	for _, data := range [][]byte{nil, []byte("not an image at all")} {
		err := checker.Validate(data, "image/jpeg")
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %d bytes, got %v", len(data), err)
		}
	}
}

func TestValidatePDFSkipsDimensionCheck(t *testing.T) {
	checker := NewChecker(400, 400)

	if err := checker.Validate([]byte("%PDF-1.7 rest of document"), "application/pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := checker.Validate([]byte("plain text pretending"), "application/pdf")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for fake pdf, got %v", err)
	}
}

func TestQualityScoreSeparatesSharpFromFlat(t *testing.T) {
	checker := NewChecker(0, 0)

	sharp, err := checker.QualityScore(encodePNG(t, checkerboard(64, 64)))
	if err != nil {
		t.Fatalf("sharp image: %v", err)
	}
	flat, err := checker.QualityScore(encodePNG(t, flatImage(64, 64, 128)))
	if err != nil {
		t.Fatalf("flat image: %v", err)
	}

	if sharp <= flat {
		t.Fatalf("expected checkerboard (%.1f) to outscore flat image (%.1f)", sharp, flat)
	}
	if flat > 1 {
		t.Fatalf("flat image should score near zero, got %.1f", flat)
	}
	if sharp < 50 {
		t.Fatalf("checkerboard should score high, got %.1f", sharp)
	}
}

func TestQualityScoreRejectsUndecodableData(t *testing.T) {
	checker := NewChecker(0, 0)
	if _, err := checker.QualityScore([]byte("junk")); err == nil {
		t.Fatal("expected decode error")
	}
}
