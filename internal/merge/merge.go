// Package merge combines per-page extracted records into one canonical
// invoice record. Merging is a pure fold over the page sequence: no page
// state is mutated and the same input always yields the same record.
package merge

import (
	"errors"

	"github.com/adars/invoice-ai/internal/derive"
	"github.com/adars/invoice-ai/internal/models"
)

// ErrNoDataExtracted is returned when no page of a document produced a
// record. It is fatal for that document only.
var ErrNoDataExtracted = errors.New("no data extracted from any page")

// Pages folds per-page records into a single canonical record. A nil entry
// marks a page whose extraction failed; such pages are skipped. The first
// present page seeds the header fields and they are never overwritten by
// later pages, even when a later page disagrees: one document gets one
// consistent header. Every present page contributes its line items, run
// through the field deriver, in page order then in-page order.
func Pages(filename string, pages []*models.RawExtractedRecord) (*models.InvoiceRecord, error) {
	var record *models.InvoiceRecord

	for _, page := range pages {
		if page == nil {
			continue
		}
		if record == nil {
			record = &models.InvoiceRecord{
				Partner:          page.Partner,
				VATNumber:        page.VATNumber,
				CRNumber:         page.CRNumber,
				Street:           page.Street,
				Street2:          page.Street2,
				Country:          page.Country,
				Email:            page.Email,
				City:             page.City,
				Mobile:           page.Mobile,
				TaxInvoice:       page.TaxInvoice,
				InvoiceBillDate:  page.InvoiceBillDate,
				Reference:        page.Reference,
				DetectedLanguage: page.DetectedLanguage,
				Filename:         filename,
				LineItems:        []models.LineItem{},
			}
		}
		for _, raw := range page.Lines {
			record.LineItems = append(record.LineItems, derive.Line(raw))
		}
	}

	if record == nil {
		return nil, ErrNoDataExtracted
	}
	return record, nil
}
