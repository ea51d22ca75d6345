package ocr

import (
	"context"
	"image"

	"github.com/Mulet-J/desktopeye/errors"
)

// Service is implemented by every OCR backend.
type Service interface {
	ExtractText(ctx context.Context, img image.Image, opts Options) (*Result, error)
}

// Options tunes one extraction.
type Options struct {
	// Languages are Tesseract language codes. Empty uses the configured set.
	Languages []string
	// Preprocess runs Preprocess on the image first.
	Preprocess bool
}

// Bounds is a pixel rectangle in the source image.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Region is one recognized word.
type Region struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// Result is the outcome of one extraction.
type Result struct {
	Text    string   `json:"text"`
	Regions []Region `json:"regions"`
	// Confidence is the mean word confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	Backend    string  `json:"backend"`
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

func meanConfidence(regions []Region) float64 {
	if len(regions) == 0 {
		return 0
	}
	var sum float64
	for _, r := range regions {
		sum += r.Confidence
	}
	return sum / float64(len(regions))
}

// loadError turns a failed lazy load into the error an operation returns.
func loadError(k Kind, err error) error {
	if errors.IsContext(err) {
		return errors.FromContext(err)
	}
	return errors.LoadFailed(k.String(), err)
}
