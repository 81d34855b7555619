// Package imaging validates uploaded document and selfie images before a
// verification case is accepted, and measures image sharpness for the
// fraud assessment.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

const (
	DefaultMinWidth  = 400
	DefaultMinHeight = 400

	// Sharpness is computed on a bounded edge so large uploads do not
	// dominate processing time.
	qualityMaxEdge = 512
)

type Checker struct {
	minWidth  int
	minHeight int
}

func NewChecker(minWidth, minHeight int) *Checker {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	if minHeight <= 0 {
		minHeight = DefaultMinHeight
	}
	return &Checker{minWidth: minWidth, minHeight: minHeight}
}

// Validate checks that the payload decodes as a supported image and meets
// the minimum dimensions. PDF documents skip the dimension check since the
// text layer is extracted directly.
func (c *Checker) Validate(data []byte, mimeType string) error {
	if len(data) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "imaging.Validate", fmt.Errorf("empty payload"))
	}
	if isPDF(mimeType) {
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			return domain.WrapError(domain.ErrInvalidInput, "imaging.Validate", fmt.Errorf("payload is not a PDF document"))
		}
		return nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "imaging.Validate", fmt.Errorf("decode image: %w", err))
	}
	if cfg.Width < c.minWidth || cfg.Height < c.minHeight {
		return domain.WrapError(domain.ErrInvalidInput, "imaging.Validate",
			fmt.Errorf("image %s is %dx%d, minimum is %dx%d", format, cfg.Width, cfg.Height, c.minWidth, c.minHeight))
	}
	return nil
}

// QualityScore returns a sharpness estimate in [0, 100]. It is the variance
// of a Laplacian filter over the grayscale image, scaled so that typical
// in-focus document photos land well above 50 and heavily blurred captures
// fall near zero.
func (c *Checker) QualityScore(data []byte) (float64, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}

	gray := toBoundedGray(src)
	variance := laplacianVariance(gray)

	// Variance of the Laplacian is unbounded; squash it into a stable
	// 0..100 range. 500 is an empirical knee for scanned ID documents.
	score := variance / 500 * 100
	if score > 100 {
		score = 100
	}
	return score, nil
}

func isPDF(mimeType string) bool {
	return strings.EqualFold(strings.TrimSpace(mimeType), "application/pdf")
}

// toBoundedGray converts to grayscale, downscaling so the longest edge is at
// most qualityMaxEdge pixels.
func toBoundedGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > qualityMaxEdge || h > qualityMaxEdge {
		scale := float64(qualityMaxEdge) / float64(max(w, h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, bounds, draw.Src, nil)
	return gray
}

// laplacianVariance applies a 4-neighbour Laplacian kernel and returns the
// variance of the response. Sharp edges produce strong responses, so low
// variance indicates a blurred image.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := 4*at(x, y) - at(x-1, y) - at(x+1, y) - at(x, y-1) - at(x, y+1)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
