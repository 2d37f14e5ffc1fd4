// Package preprocess normalizes page images before they are submitted to an
// extraction backend. The filters mirror a typical document-cleanup chain:
// orientation fix, grayscale, contrast boost and a light sharpen.
package preprocess

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Normalize applies the cleanup chain to one page image and re-encodes it
// as PNG. The input bytes are never modified.
func Normalize(pageImage []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(pageImage))
	if err != nil {
		return nil, fmt.Errorf("decoding page image: %w", err)
	}

	var img image.Image = src

	// Scanned invoices are portrait; a landscape page is a sideways scan.
	bounds := img.Bounds()
	if bounds.Dx() > bounds.Dy() {
		img = imaging.Rotate90(img)
	}

	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding normalized image: %w", err)
	}
	return buf.Bytes(), nil
}
