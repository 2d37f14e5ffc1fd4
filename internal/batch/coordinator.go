// Package batch runs the document pipeline over many documents with a
// bounded worker pool and streams progress to the caller.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/models"
)

// errNotDispatched marks documents the coordinator never handed to a worker
// because cancellation was observed first.
var errNotDispatched = errors.New("document not dispatched: batch cancelled")

// Processor is the per-document pipeline contract the coordinator drives.
type Processor interface {
	ProcessDocument(ctx context.Context, doc models.Document, normalize bool) (*models.InvoiceRecord, error)
}

// Config parameterizes a coordinator. It is passed in at construction;
// nothing is read from ambient state at call time.
type Config struct {
	Workers   int
	Normalize bool
}

// Coordinator fans a batch of documents out over a fixed-size worker pool.
// Each worker runs one document to completion before taking the next. One
// failing document never aborts the batch.
type Coordinator struct {
	processor Processor
	workers   int
	normalize bool
	logger    *zap.Logger
}

// New creates a batch coordinator.
func New(processor Processor, cfg Config, logger *zap.Logger) *Coordinator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 3
	}
	return &Coordinator{
		processor: processor,
		workers:   workers,
		normalize: cfg.Normalize,
		logger:    logger,
	}
}

// completion is the outcome of one document, tagged with its submission
// index so aggregate results can be reported in input order.
type completion struct {
	index  int
	record *models.InvoiceRecord
	err    error
}

// Run processes all documents and aggregates the outcome. Records are
// ordered by original submission index. Cancellation stops dispatching new
// documents; documents already in flight finish (their extraction calls run
// on a detached context) and undispatched ones are counted as failed.
func (c *Coordinator) Run(ctx context.Context, docs []models.Document) *models.BatchResult {
	result := &models.BatchResult{
		Records:        []*models.InvoiceRecord{},
		TotalSubmitted: len(docs),
	}

	byIndex := make([]*models.InvoiceRecord, len(docs))
	for done := range c.dispatch(ctx, docs) {
		if done.err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, models.DocumentError{
				Filename: docs[done.index].Filename,
				Reason:   done.err.Error(),
			})
			continue
		}
		result.SuccessCount++
		byIndex[done.index] = done.record
	}

	for _, record := range byIndex {
		if record != nil {
			result.Records = append(result.Records, record)
		}
	}

	c.logger.Info("Batch completed",
		zap.Int("total", result.TotalSubmitted),
		zap.Int("successful", result.SuccessCount),
		zap.Int("failed", result.FailedCount))

	return result
}

// RunStream processes all documents and emits progress events on the
// returned channel: one metadata event, then result events in completion
// order, then one complete event, after which the channel is closed.
// Documents skipped by cancellation produce no result event; stream
// consumers treat them as unknown-status.
func (c *Coordinator) RunStream(ctx context.Context, docs []models.Document) <-chan models.ProgressEvent {
	events := make(chan models.ProgressEvent)

	go func() {
		defer close(events)

		total := len(docs)
		events <- models.ProgressEvent{Type: models.EventMetadata, Total: total}

		current := 0
		for done := range c.dispatch(ctx, docs) {
			if errors.Is(done.err, errNotDispatched) {
				continue
			}
			current++
			event := models.ProgressEvent{
				Type:     models.EventResult,
				Filename: docs[done.index].Filename,
				Progress: &models.Progress{
					Current: current,
					Total:   total,
					Percent: float64(current) / float64(total) * 100,
				},
			}
			if done.err != nil {
				event.Status = models.StatusError
				event.Error = done.err.Error()
			} else {
				event.Status = models.StatusSuccess
				event.Record = done.record
			}
			events <- event
		}

		events <- models.ProgressEvent{Type: models.EventComplete}
	}()

	return events
}

// dispatch feeds documents to the worker pool and returns a channel of
// completions in completion order. The channel closes once every document
// has been accounted for, dispatched or not.
func (c *Coordinator) dispatch(ctx context.Context, docs []models.Document) <-chan completion {
	jobs := make(chan int)
	out := make(chan completion)

	// In-flight documents are allowed to finish after cancellation: workers
	// process on a context that keeps values but not the cancel signal.
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				doc := docs[i]
				c.logger.Debug("Processing document",
					zap.Int("index", i),
					zap.String("filename", doc.Filename))

				record, err := c.processor.ProcessDocument(workCtx, doc, c.normalize)
				if err != nil {
					c.logger.Warn("Document failed",
						zap.String("filename", doc.Filename),
						zap.Error(err))
				}
				out <- completion{index: i, record: record, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range docs {
			select {
			case <-ctx.Done():
				for j := i; j < len(docs); j++ {
					out <- completion{index: j, err: fmt.Errorf("%w: %v", errNotDispatched, ctx.Err())}
				}
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
