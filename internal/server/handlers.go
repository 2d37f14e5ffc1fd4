package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adars/invoice-ai/internal/derive"
	"github.com/adars/invoice-ai/internal/merge"
	"github.com/adars/invoice-ai/internal/models"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	documents DocumentService
	batches   BatchService
	store     InvoiceStore
	normalize bool
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	documents DocumentService,
	batches BatchService,
	store InvoiceStore,
	normalize bool,
	logger Logger,
) *Handlers {
	return &Handlers{
		documents: documents,
		batches:   batches,
		store:     store,
		normalize: normalize,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// BatchResponse is the batch result plus export bookkeeping when a
// workbook store is configured.
type BatchResponse struct {
	*models.BatchResult
	Saved      *int `json:"saved_count,omitempty"`
	Duplicates *int `json:"duplicate_count,omitempty"`
}

// TotalsResponse carries the tax-derived totals of one invoice record.
type TotalsResponse struct {
	ItemsCount  int    `json:"items_count"`
	TotalVAT    string `json:"total_vat"`
	Subtotal    string `json:"subtotal"`
	TotalAmount string `json:"total_amount"`
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"service": "invoice-extraction-api",
			"endpoints": []string{
				"/extract", "/extract-multiple", "/extract-stream", "/invoices/totals", "/health",
			},
		},
	})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// ExtractSingle handles POST /extract. It accepts one uploaded document
// under the "pdf" form field and returns the consolidated invoice record.
func (h *Handlers) ExtractSingle(c *gin.Context) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		h.logger.Error("Missing upload", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "missing file upload under field 'pdf'",
		})
		return
	}

	doc, err := readUpload(fileHeader)
	if err != nil {
		h.logger.Error("Failed to read upload", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "failed to read uploaded file",
		})
		return
	}

	record, err := h.documents.ProcessDocument(c.Request.Context(), doc, h.normalize)
	if err != nil {
		if errors.Is(err, merge.ErrNoDataExtracted) {
			h.logger.Error("No data extracted", "filename", doc.Filename)
			c.JSON(http.StatusUnprocessableEntity, Response{
				Success: false,
				Error:   "no invoice data could be extracted from the document",
			})
			return
		}
		h.logger.Error("Extraction failed", "filename", doc.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "extraction failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    record,
	})
}

// ExtractMultiple handles POST /extract-multiple. It accepts any number of
// uploads under the "pdfs" form field and returns the aggregate result.
func (h *Handlers) ExtractMultiple(c *gin.Context) {
	docs, ok := h.readBatchUploads(c)
	if !ok {
		return
	}

	result := h.batches.Run(c.Request.Context(), docs)

	response := BatchResponse{BatchResult: result}
	if h.store != nil && len(result.Records) > 0 {
		saved, duplicates, err := h.store.AppendAll(result.Records)
		if err != nil {
			h.logger.Error("Export failed", "error", err)
		} else {
			response.Saved = &saved
			response.Duplicates = &duplicates
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// ExtractStream handles POST /extract-stream. Results are delivered as
// server-sent events in completion order while the batch runs.
func (h *Handlers) ExtractStream(c *gin.Context) {
	docs, ok := h.readBatchUploads(c)
	if !ok {
		return
	}

	events := h.batches.RunStream(c.Request.Context(), docs)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		event, open := <-events
		if !open {
			return false
		}
		c.SSEvent("message", event)
		return true
	})
}

// InvoiceTotals handles POST /invoices/totals. It recomputes the derived
// totals for a previously extracted record.
func (h *Handlers) InvoiceTotals(c *gin.Context) {
	var record models.InvoiceRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Error("Invalid invoice record", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid invoice record",
		})
		return
	}

	response := TotalsResponse{
		ItemsCount:  len(record.LineItems),
		TotalVAT:    derive.TotalVAT(&record),
		Subtotal:    derive.Subtotal(&record),
		TotalAmount: derive.TotalAmount(&record),
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// readBatchUploads reads every upload under the "pdfs" field. On failure it
// writes the error response and returns ok=false.
func (h *Handlers) readBatchUploads(c *gin.Context) ([]models.Document, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Error("Invalid multipart form", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid multipart form",
		})
		return nil, false
	}

	fileHeaders := form.File["pdfs"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "no file uploads under field 'pdfs'",
		})
		return nil, false
	}

	docs := make([]models.Document, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		doc, err := readUpload(fh)
		if err != nil {
			h.logger.Error("Failed to read upload", "filename", fh.Filename, "error", err)
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "failed to read uploaded file " + fh.Filename,
			})
			return nil, false
		}
		docs = append(docs, doc)
	}
	return docs, true
}

func readUpload(fh *multipart.FileHeader) (models.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{Filename: fh.Filename, Data: data}, nil
}
