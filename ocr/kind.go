package ocr

import (
	"github.com/Mulet-J/desktopeye/errors"
)

// Kind selects an OCR backend.
type Kind int

const (
	// Tesseract uses libtesseract in process.
	Tesseract Kind = iota
	// TesseractCLI runs the tesseract binary per call.
	TesseractCLI
)

// DefaultKind is created when no backend is configured.
const DefaultKind = Tesseract

var kindNames = map[Kind]string{
	Tesseract:    "tesseract",
	TesseractCLI: "tesseract-cli",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.InvalidInput("ocr backend", "unknown OCR backend "+s)
}

// Kinds lists every known kind.
func Kinds() []Kind { return []Kind{Tesseract, TesseractCLI} }
