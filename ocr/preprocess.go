package ocr

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// minPreprocessWidth is the width small captures are upscaled to. Tesseract
// reads screen text far better at roughly 300 DPI equivalents.
const minPreprocessWidth = 1200

// Preprocess prepares a capture for OCR: grayscale, upscale when narrow,
// contrast boost, sharpen and Otsu binarisation.
func Preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	if w := gray.Bounds().Dx(); w > 0 && w < minPreprocessWidth {
		gray = imaging.Resize(gray, minPreprocessWidth, 0, imaging.Lanczos)
	}
	gray = imaging.AdjustContrast(gray, 25)
	gray = imaging.Sharpen(gray, 1.0)
	return segment.Threshold(gray, otsuLevel(gray))
}

// otsuLevel picks the threshold that maximizes between-class variance of
// the luminance histogram.
func otsuLevel(img image.Image) uint8 {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000 >> 8
			hist[lum]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, best float64
	var weightB int
	level := 128
	for i, n := range hist {
		weightB += n
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(i * n)
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			level = i
		}
	}
	// Threshold blacks out values below the level, so step past the
	// background class.
	if level < 255 {
		level++
	}
	return uint8(level)
}
