package ocr

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/Mulet-J/desktopeye/errors"
)

// Decode reads a PNG, JPEG, GIF, BMP or TIFF image, applying any EXIF
// orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.InvalidInput("image", "cannot decode image: "+err.Error())
	}
	return img, nil
}

// encodePNG renders img for engines that take encoded bytes.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
