// Package ocr extracts text from screen captures and images.
//
// Two backends read text with Tesseract: Tesseract links libtesseract
// through gosseract (cgo builds only) and TesseractCLI drives the tesseract
// binary. Both honour the page segmentation mode and tessdata prefix from
// config.OCRConfig and can run the image through Preprocess first.
//
// Orchestrator wraps provider.Orchestrator so callers never hold a backend
// directly:
//
//	res, err := o.ExtractText(ctx, img, []string{"eng", "deu"}, true)
package ocr
