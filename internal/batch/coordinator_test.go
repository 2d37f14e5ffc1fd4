package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/models"
)

// fakeProcessor succeeds for every document except those whose filename
// starts with "bad". It records concurrent invocations to verify the pool
// bound.
type fakeProcessor struct {
	delay time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, doc models.Document, normalize bool) (*models.InvoiceRecord, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if strings.HasPrefix(doc.Filename, "bad") {
		return nil, errors.New("rasterization failed: corrupt file")
	}
	return &models.InvoiceRecord{Filename: doc.Filename, LineItems: []models.LineItem{}}, nil
}

func docs(names ...string) []models.Document {
	out := make([]models.Document, len(names))
	for i, name := range names {
		out[i] = models.Document{Filename: name}
	}
	return out
}

func TestRun_Aggregation(t *testing.T) {
	c := New(&fakeProcessor{}, Config{Workers: 2}, zap.NewNop())

	result := c.Run(context.Background(), docs("a.pdf", "bad.pdf", "c.pdf"))

	assert.Equal(t, 3, result.TotalSubmitted)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, result.Records, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad.pdf", result.Errors[0].Filename)
	assert.Equal(t, result.TotalSubmitted, result.SuccessCount+result.FailedCount)
}

func TestRun_RecordsInSubmissionOrder(t *testing.T) {
	// Workers race, but aggregated records come back in input order.
	c := New(&fakeProcessor{delay: 5 * time.Millisecond}, Config{Workers: 4}, zap.NewNop())

	result := c.Run(context.Background(), docs("a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"))

	require.Len(t, result.Records, 5)
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"} {
		assert.Equal(t, name, result.Records[i].Filename)
	}
}

func TestRun_BoundedWorkerPool(t *testing.T) {
	p := &fakeProcessor{delay: 10 * time.Millisecond}
	c := New(p, Config{Workers: 2}, zap.NewNop())

	c.Run(context.Background(), docs("a", "b", "c", "d", "e", "f"))

	assert.LessOrEqual(t, p.maxInFlight, 2)
}

func TestRun_CancelledBeforeDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(&fakeProcessor{}, Config{Workers: 2}, zap.NewNop())

	result := c.Run(ctx, docs("a.pdf", "b.pdf"))

	assert.Equal(t, 2, result.TotalSubmitted)
	assert.Equal(t, 2, result.FailedCount)
	assert.Empty(t, result.Records)
}

func TestRunStream_EventSequence(t *testing.T) {
	c := New(&fakeProcessor{}, Config{Workers: 2}, zap.NewNop())

	var events []models.ProgressEvent
	for event := range c.RunStream(context.Background(), docs("a.pdf", "bad.pdf", "c.pdf")) {
		events = append(events, event)
	}

	require.Len(t, events, 5)
	assert.Equal(t, models.EventMetadata, events[0].Type)
	assert.Equal(t, 3, events[0].Total)
	assert.Equal(t, models.EventComplete, events[len(events)-1].Type)

	statuses := map[string]int{}
	lastPercent := 0.0
	for _, event := range events[1 : len(events)-1] {
		require.Equal(t, models.EventResult, event.Type)
		require.NotNil(t, event.Progress)
		assert.GreaterOrEqual(t, event.Progress.Percent, lastPercent)
		lastPercent = event.Progress.Percent
		statuses[event.Status]++
	}
	assert.Equal(t, 2, statuses[models.StatusSuccess])
	assert.Equal(t, 1, statuses[models.StatusError])
	assert.InDelta(t, 100.0, lastPercent, 0.001)
}

func TestRunStream_SuccessEventCarriesRecord(t *testing.T) {
	c := New(&fakeProcessor{}, Config{Workers: 1}, zap.NewNop())

	for event := range c.RunStream(context.Background(), docs("a.pdf")) {
		if event.Type == models.EventResult {
			require.NotNil(t, event.Record)
			assert.Equal(t, "a.pdf", event.Record.Filename)
			assert.Equal(t, "a.pdf", event.Filename)
		}
	}
}

func TestRunStream_CancelledDocumentsEmitNoResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(&fakeProcessor{}, Config{Workers: 1}, zap.NewNop())

	var types []string
	for event := range c.RunStream(ctx, docs("a.pdf", "b.pdf")) {
		types = append(types, event.Type)
	}

	// Undispatched documents are unknown-status: metadata and complete only.
	assert.Equal(t, []string{models.EventMetadata, models.EventComplete}, types)
}
