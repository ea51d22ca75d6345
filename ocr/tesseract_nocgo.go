//go:build !cgo

package ocr

import (
	"fmt"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
)

func newTesseract(config.OCRConfig) (Service, error) {
	return nil, errors.ServiceUnavailable("tesseract backend").
		WithCause(fmt.Errorf("built without cgo, use %s", TesseractCLI))
}
