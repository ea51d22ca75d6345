//go:build cgo

package ocr

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

// TesseractClient reads text with libtesseract. LoadRequired builds the client
// and runs one probe recognition so missing traineddata surfaces at load
// time rather than on the first capture.
type TesseractClient struct {
	cfg  config.OCRConfig
	gate provider.LoadGate

	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
	closed bool
}

// NewTesseractClient creates an unloaded in-process Tesseract backend.
func NewTesseractClient(cfg config.OCRConfig) *TesseractClient {
	return &TesseractClient{cfg: cfg}
}

func newTesseract(cfg config.OCRConfig) (Service, error) {
	return NewTesseractClient(cfg), nil
}

// LoadRequired loads the languages named in modelHint ("eng+deu"), or the
// configured languages when the hint is empty.
func (t *TesseractClient) LoadRequired(ctx context.Context, modelHint string) (bool, error) {
	return t.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		langs := t.cfg.Languages
		if modelHint != "" {
			langs = strings.Split(modelHint, "+")
		}

		c := gosseract.NewClient()
		if err := t.configure(c, langs); err != nil {
			c.Close()
			return false, err
		}
		probe, err := encodePNG(image.NewGray(image.Rect(0, 0, 8, 8)))
		if err == nil {
			err = c.SetImageFromBytes(probe)
		}
		if err == nil {
			_, err = c.Text()
		}
		if err != nil {
			c.Close()
			return false, err
		}
		if err := ctx.Err(); err != nil {
			c.Close()
			return false, err
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			c.Close()
			return false, errors.Disposed("tesseract backend")
		}
		t.client = c
		t.langs = langs
		return true, nil
	})
}

func (t *TesseractClient) ExtractText(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	if ok, err := t.LoadRequired(ctx, ""); !ok {
		return nil, loadError(Tesseract, err)
	}
	if opts.Preprocess {
		img = Preprocess(img)
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, errors.InvalidInput("image", err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.client == nil {
		return nil, errors.Disposed("tesseract backend")
	}
	if len(opts.Languages) > 0 && !sameLanguages(opts.Languages, t.langs) {
		if err := t.client.SetLanguage(opts.Languages...); err != nil {
			return nil, errors.OperationFailed(Tesseract.String(), "set languages", err)
		}
		t.langs = opts.Languages
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, errors.OperationFailed(Tesseract.String(), "read image", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return nil, errors.OperationFailed(Tesseract.String(), "recognize text", err)
	}

	var regions []Region
	if boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		regions = make([]Region, 0, len(boxes))
		for _, b := range boxes {
			if strings.TrimSpace(b.Word) == "" {
				continue
			}
			regions = append(regions, Region{
				Text:       b.Word,
				Confidence: b.Confidence / 100.0,
				Bounds:     boundsOf(b.Box),
			})
		}
	}

	return &Result{
		Text:       strings.TrimSpace(text),
		Regions:    regions,
		Confidence: meanConfidence(regions),
		Backend:    Tesseract.String(),
	}, nil
}

// Close releases the native client.
func (t *TesseractClient) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func (t *TesseractClient) configure(c *gosseract.Client, langs []string) error {
	if t.cfg.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(t.cfg.TessdataPrefix); err != nil {
			return err
		}
	}
	if err := c.SetLanguage(langs...); err != nil {
		return err
	}
	if t.cfg.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(t.cfg.PageSegMode)); err != nil {
			return err
		}
	}
	return nil
}

func sameLanguages(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
