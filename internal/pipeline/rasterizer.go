package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder for direct image uploads
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Rasterizer turns a source document into an ordered sequence of page
// images (PNG bytes), one per page.
type Rasterizer interface {
	Rasterize(data []byte) ([][]byte, error)
	RasterizeFile(path string) ([][]byte, error)
}

// FitzRasterizer renders PDF pages with mupdf. Image files (PNG/JPEG) are
// accepted directly as single-page documents.
type FitzRasterizer struct {
	logger *zap.Logger
}

// NewFitzRasterizer creates the mupdf-backed rasterizer.
func NewFitzRasterizer(logger *zap.Logger) *FitzRasterizer {
	return &FitzRasterizer{logger: logger}
}

// Rasterize renders every page of an in-memory PDF to PNG bytes.
func (r *FitzRasterizer) Rasterize(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer doc.Close()

	return r.renderPages(doc)
}

// RasterizeFile renders a document from disk. PDFs go through mupdf;
// PNG and JPEG files become a single page.
func (r *FitzRasterizer) RasterizeFile(path string) ([][]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		doc, err := fitz.New(path)
		if err != nil {
			return nil, fmt.Errorf("opening document: %w", err)
		}
		defer doc.Close()
		return r.renderPages(doc)
	case ".png", ".jpg", ".jpeg":
		return r.readImageFile(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func (r *FitzRasterizer) renderPages(doc *fitz.Document) ([][]byte, error) {
	pageCount := doc.NumPage()
	pages := make([][]byte, 0, pageCount)

	for n := 0; n < pageCount; n++ {
		img, err := doc.Image(n)
		if err != nil {
			r.logger.Warn("Failed to render page", zap.Int("page", n+1), zap.Error(err))
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			r.logger.Warn("Failed to encode page", zap.Int("page", n+1), zap.Error(err))
			continue
		}
		pages = append(pages, buf.Bytes())
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from document")
	}
	return pages, nil
}

func (r *FitzRasterizer) readImageFile(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return [][]byte{buf.Bytes()}, nil
}
