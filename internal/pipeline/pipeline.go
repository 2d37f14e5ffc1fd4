// Package pipeline sequences rasterization, optional normalization,
// extraction and merging for a single document.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/extractor"
	"github.com/adars/invoice-ai/internal/merge"
	"github.com/adars/invoice-ai/internal/models"
	"github.com/adars/invoice-ai/internal/preprocess"
)

// Pipeline turns one document into a canonical invoice record. Pages are
// extracted concurrently (the backend call is a network round trip) and the
// per-page results are reassembled in original page order before merging,
// since page order determines line item order.
type Pipeline struct {
	rasterizer  Rasterizer
	backend     extractor.Backend
	callTimeout time.Duration
	logger      *zap.Logger
}

// New creates a document pipeline. callTimeout bounds each individual
// backend call; zero means one minute.
func New(rasterizer Rasterizer, backend extractor.Backend, callTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if callTimeout <= 0 {
		callTimeout = time.Minute
	}
	return &Pipeline{
		rasterizer:  rasterizer,
		backend:     backend,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// ProcessDocument rasterizes the document and processes its pages.
// A rasterization failure is fatal for the document: there are no pages
// to extract from.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc models.Document, normalize bool) (*models.InvoiceRecord, error) {
	var pages [][]byte
	var err error
	if len(doc.Data) > 0 {
		pages, err = p.rasterizer.Rasterize(doc.Data)
	} else {
		pages, err = p.rasterizer.RasterizeFile(doc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("rasterization failed for %s: %w", doc.Filename, err)
	}

	p.logger.Info("Document rasterized",
		zap.String("filename", doc.Filename),
		zap.Int("page_count", len(pages)))

	return p.ProcessPages(ctx, doc.Filename, pages, normalize)
}

// ProcessPages extracts every page and merges the results. A single page
// failure is logged and skipped; the document fails only when no page
// yields data.
func (p *Pipeline) ProcessPages(ctx context.Context, filename string, pages [][]byte, normalize bool) (*models.InvoiceRecord, error) {
	results := make([]*models.RawExtractedRecord, len(pages))

	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		go func(i int, page []byte) {
			defer wg.Done()
			results[i] = p.extractPage(ctx, filename, i, page, normalize)
		}(i, page)
	}
	wg.Wait()

	record, err := merge.Pages(filename, results)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Document processed",
		zap.String("filename", filename),
		zap.Int("page_count", len(pages)),
		zap.Int("line_items", len(record.LineItems)))

	return record, nil
}

func (p *Pipeline) extractPage(ctx context.Context, filename string, index int, page []byte, normalize bool) *models.RawExtractedRecord {
	if normalize {
		normalized, err := preprocess.Normalize(page)
		if err != nil {
			// Fall back to the raw page; a failed filter chain is not worth
			// losing the page over.
			p.logger.Warn("Page normalization failed",
				zap.String("filename", filename),
				zap.Int("page", index+1),
				zap.Error(err))
		} else {
			page = normalized
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	record, err := p.backend.Extract(callCtx, page)
	if err != nil {
		p.logger.Warn("Page extraction failed",
			zap.String("filename", filename),
			zap.Int("page", index+1),
			zap.String("backend", p.backend.Name()),
			zap.Error(err))
		return nil
	}
	return record
}
