package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adars/invoice-ai/internal/merge"
	"github.com/adars/invoice-ai/internal/models"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockDocumentService struct {
	record   *models.InvoiceRecord
	err      error
	gotDoc   models.Document
	gotNorm  bool
	gotCalls int
}

func (m *mockDocumentService) ProcessDocument(ctx context.Context, doc models.Document, normalize bool) (*models.InvoiceRecord, error) {
	m.gotDoc = doc
	m.gotNorm = normalize
	m.gotCalls++
	return m.record, m.err
}

type mockBatchService struct {
	result  *models.BatchResult
	events  []models.ProgressEvent
	gotDocs []models.Document
}

func (m *mockBatchService) Run(ctx context.Context, docs []models.Document) *models.BatchResult {
	m.gotDocs = docs
	return m.result
}

func (m *mockBatchService) RunStream(ctx context.Context, docs []models.Document) <-chan models.ProgressEvent {
	m.gotDocs = docs
	ch := make(chan models.ProgressEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch
}

type mockStore struct {
	saved      int
	duplicates int
	got        []*models.InvoiceRecord
}

func (m *mockStore) AppendAll(records []*models.InvoiceRecord) (int, int, error) {
	m.got = records
	return m.saved, m.duplicates, nil
}

func newTestServer(docs DocumentService, batches BatchService, store InvoiceStore) *Server {
	return NewServer(DefaultConfig(), docs, batches, store, noopLogger{})
}

// streamRecorder adds CloseNotify to httptest.ResponseRecorder; gin's
// Stream requires the writer to be an http.CloseNotifier.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closeNotify chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		closeNotify:      make(chan bool, 1),
	}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closeNotify }

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockBatchService{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRoot(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockBatchService{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invoice-extraction-api")
}

func TestExtractSingle_Success(t *testing.T) {
	docService := &mockDocumentService{
		record: &models.InvoiceRecord{Partner: "Acme Trading LLC", Filename: "invoice.pdf"},
	}
	srv := newTestServer(docService, &mockBatchService{}, nil)

	body, contentType := multipartBody(t, "pdf", map[string][]byte{"invoice.pdf": []byte("%PDF-1.4")})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), "Acme Trading LLC")

	assert.Equal(t, "invoice.pdf", docService.gotDoc.Filename)
	assert.Equal(t, []byte("%PDF-1.4"), docService.gotDoc.Data)
}

func TestExtractSingle_MissingUpload(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockBatchService{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(""))
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}

func TestExtractSingle_NoDataExtracted(t *testing.T) {
	docService := &mockDocumentService{err: merge.ErrNoDataExtracted}
	srv := newTestServer(docService, &mockBatchService{}, nil)

	body, contentType := multipartBody(t, "pdf", map[string][]byte{"blank.pdf": []byte("%PDF-1.4")})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}

func TestExtractMultiple_Success(t *testing.T) {
	batchService := &mockBatchService{
		result: &models.BatchResult{
			Records:        []*models.InvoiceRecord{{Filename: "a.pdf"}, {Filename: "b.pdf"}},
			TotalSubmitted: 2,
			SuccessCount:   2,
		},
	}
	store := &mockStore{saved: 2}
	srv := newTestServer(&mockDocumentService{}, batchService, store)

	body, contentType := multipartBody(t, "pdfs", map[string][]byte{
		"a.pdf": []byte("%PDF-1.4"),
		"b.pdf": []byte("%PDF-1.4"),
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract-multiple", body)
	req.Header.Set("Content-Type", contentType)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"total_submitted":2`)
	assert.Contains(t, w.Body.String(), `"saved_count":2`)

	assert.Len(t, batchService.gotDocs, 2)
	assert.Len(t, store.got, 2)
}

func TestExtractMultiple_NoUploads(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockBatchService{}, nil)

	body, contentType := multipartBody(t, "other", map[string][]byte{"a.pdf": []byte("x")})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract-multiple", body)
	req.Header.Set("Content-Type", contentType)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractStream_EmitsEvents(t *testing.T) {
	batchService := &mockBatchService{
		events: []models.ProgressEvent{
			{Type: models.EventMetadata, Total: 1},
			{Type: models.EventResult, Filename: "a.pdf", Status: models.StatusSuccess,
				Progress: &models.Progress{Current: 1, Total: 1, Percent: 100}},
			{Type: models.EventComplete},
		},
	}
	srv := newTestServer(&mockDocumentService{}, batchService, nil)

	body, contentType := multipartBody(t, "pdfs", map[string][]byte{"a.pdf": []byte("%PDF-1.4")})
	w := newStreamRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract-stream", body)
	req.Header.Set("Content-Type", contentType)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	out := w.Body.String()
	assert.Contains(t, out, `"type":"metadata"`)
	assert.Contains(t, out, `"type":"result"`)
	assert.Contains(t, out, `"type":"complete"`)
	assert.Contains(t, out, `"percent":100`)
}

func TestInvoiceTotals(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockBatchService{}, nil)

	record := models.InvoiceRecord{
		LineItems: []models.LineItem{
			{Quantity: "2", UnitPrice: "100", Tax: "15%", VATAmount: "30.00"},
		},
	}
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invoices/totals", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, `"total_vat":"30.00"`)
	assert.Contains(t, out, `"subtotal":"200.00"`)
	assert.Contains(t, out, `"total_amount":"230.00"`)
}

func TestInvoiceTotals_InvalidBody(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockBatchService{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invoices/totals", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
