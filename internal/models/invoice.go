package models

// RawLineItem is one billed line as the extraction backend returned it,
// before any derived-field computation. All fields are free text.
type RawLineItem struct {
	Product     string `json:"product"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	GrossAmount string `json:"gross_amount"`
	Tax         string `json:"taxes"`
}

// RawExtractedRecord is the normalized output of one extraction backend call
// for a single page image. Every backend variant maps its response into this
// shape before returning.
type RawExtractedRecord struct {
	Partner          string        `json:"partner"`
	VATNumber        string        `json:"vat_number"`
	CRNumber         string        `json:"cr_number"`
	Street           string        `json:"street"`
	Street2          string        `json:"street2"`
	Country          string        `json:"country"`
	Email            string        `json:"email"`
	City             string        `json:"city"`
	Mobile           string        `json:"mobile"`
	TaxInvoice       bool          `json:"invoice_type"`
	InvoiceBillDate  string        `json:"invoice_bill_date"`
	Reference        string        `json:"reference"`
	Lines            []RawLineItem `json:"invoice_lines"`
	DetectedLanguage string        `json:"detected_language"`
}

// LineItem is one billed line of the canonical record. Textual fields keep
// the raw extracted text for audit; VATAmount is always computed locally,
// never taken from the backend. Tax is restricted to "0" or "15%".
type LineItem struct {
	Product     string `json:"product"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	GrossAmount string `json:"gross_amount"`
	Tax         string `json:"tax"`
	VATAmount   string `json:"vat_amount"`
}

// InvoiceRecord is one document's consolidated data after merging all pages.
// Header fields come from the first page that produced a non-empty record;
// line items are appended in page order, then in-page order.
type InvoiceRecord struct {
	Partner          string     `json:"partner"`
	VATNumber        string     `json:"vat_number"`
	CRNumber         string     `json:"cr_number"`
	Street           string     `json:"street"`
	Street2          string     `json:"street2"`
	Country          string     `json:"country"`
	Email            string     `json:"email"`
	City             string     `json:"city"`
	Mobile           string     `json:"mobile"`
	TaxInvoice       bool       `json:"invoice_type"`
	InvoiceBillDate  string     `json:"invoice_bill_date"`
	Reference        string     `json:"reference"`
	DetectedLanguage string     `json:"detected_language"`
	Filename         string     `json:"filename"`
	LineItems        []LineItem `json:"line_items"`
}

// Document is one source file submitted to the batch coordinator.
// Data holds the raw file bytes when the document arrived over HTTP;
// otherwise Path points at the file on disk.
type Document struct {
	Filename string
	Path     string
	Data     []byte
}

// DocumentError records why a single document failed.
type DocumentError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchResult aggregates the outcome of processing many documents.
// TotalSubmitted = SuccessCount + FailedCount, and len(Records) = SuccessCount.
type BatchResult struct {
	Records        []*InvoiceRecord `json:"records"`
	TotalSubmitted int              `json:"total_submitted"`
	SuccessCount   int              `json:"successful_count"`
	FailedCount    int              `json:"failed_count"`
	Errors         []DocumentError  `json:"errors,omitempty"`
}

// Progress event types and statuses for the streaming batch boundary.
const (
	EventMetadata = "metadata"
	EventResult   = "result"
	EventComplete = "complete"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Progress reports batch completion so far.
type Progress struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ProgressEvent is one entry on the batch event stream. Metadata is emitted
// once before any result, complete exactly once at the end.
type ProgressEvent struct {
	Type     string         `json:"type"`
	Total    int            `json:"total,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Status   string         `json:"status,omitempty"`
	Error    string         `json:"error,omitempty"`
	Progress *Progress      `json:"progress,omitempty"`
	Record   *InvoiceRecord `json:"record,omitempty"`
}
