// Package export persists canonical invoice records to a spreadsheet.
// The workbook doubles as a cheap dedupe index: a record whose reference
// was already written is skipped instead of appended twice.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/derive"
	"github.com/adars/invoice-ai/internal/models"
	"github.com/adars/invoice-ai/pkg/utils"
)

var columns = []string{
	"extraction_date", "filename", "partner", "vat_number", "cr_number",
	"street", "street2", "city", "country", "email", "mobile",
	"tax_invoice", "invoice_bill_date", "reference", "detected_language",
	"line_items", "items_count", "total_vat", "subtotal", "total_amount",
}

const referenceColumn = 13 // zero-based index into columns

// ExcelStore appends invoice records to a single-sheet workbook, creating
// it with a header row on first use.
type ExcelStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewExcelStore creates a store writing to path.
func NewExcelStore(path string, logger *zap.Logger) *ExcelStore {
	return &ExcelStore{path: path, logger: logger}
}

// Append writes one record as a new row. It returns false without writing
// when a row with the same non-empty reference already exists.
func (s *ExcelStore) Append(record *models.InvoiceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(record)
}

// AppendAll writes every record, counting saves and duplicate skips.
func (s *ExcelStore) AppendAll(records []*models.InvoiceRecord) (saved, duplicates int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		ok, err := s.append(record)
		if err != nil {
			return saved, duplicates, err
		}
		if ok {
			saved++
		} else {
			duplicates++
		}
	}
	return saved, duplicates, nil
}

func (s *ExcelStore) append(record *models.InvoiceRecord) (bool, error) {
	f, sheet, err := s.open()
	if err != nil {
		return false, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return false, fmt.Errorf("reading workbook: %w", err)
	}

	// A pre-existing workbook may have an empty first sheet.
	if len(rows) == 0 {
		if err := writeHeader(f, sheet); err != nil {
			return false, err
		}
		rows = append(rows, columns)
	}

	if record.Reference != "" {
		for _, row := range rows[1:] {
			if len(row) > referenceColumn && row[referenceColumn] == record.Reference {
				s.logger.Info("Skipping duplicate invoice",
					zap.String("reference", record.Reference),
					zap.String("filename", record.Filename))
				return false, nil
			}
		}
	}

	items, err := json.Marshal(record.LineItems)
	if err != nil {
		return false, fmt.Errorf("serializing line items: %w", err)
	}

	if record.VATNumber != "" {
		if err := utils.ValidateVATNumber(record.VATNumber); err != nil {
			s.logger.Warn("Invoice has malformed VAT number",
				zap.String("vat_number", record.VATNumber),
				zap.String("filename", record.Filename))
		}
	}
	if record.Email != "" && record.Email != "None" {
		if err := utils.ValidateEmail(record.Email); err != nil {
			s.logger.Warn("Invoice has malformed email",
				zap.String("email", record.Email),
				zap.String("filename", record.Filename))
		}
	}

	row := []interface{}{
		time.Now().Format("2006-01-02 15:04:05"),
		record.Filename,
		utils.SanitizeString(record.Partner),
		record.VATNumber,
		record.CRNumber,
		record.Street,
		record.Street2,
		record.City,
		record.Country,
		record.Email,
		record.Mobile,
		strconv.FormatBool(record.TaxInvoice),
		record.InvoiceBillDate,
		record.Reference,
		record.DetectedLanguage,
		string(items),
		len(record.LineItems),
		derive.TotalVAT(record),
		derive.Subtotal(record),
		derive.TotalAmount(record),
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return false, err
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return false, fmt.Errorf("writing row: %w", err)
	}
	if err := f.SaveAs(s.path); err != nil {
		return false, fmt.Errorf("saving workbook: %w", err)
	}

	s.logger.Info("Invoice saved to workbook",
		zap.String("reference", record.Reference),
		zap.String("path", s.path))
	return true, nil
}

func (s *ExcelStore) open() (*excelize.File, string, error) {
	if _, err := os.Stat(s.path); err == nil {
		f, err := excelize.OpenFile(s.path)
		if err != nil {
			return nil, "", fmt.Errorf("opening workbook: %w", err)
		}
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, "", fmt.Errorf("workbook has no sheets")
		}
		return f, sheets[0], nil
	}

	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]

	if err := writeHeader(f, sheet); err != nil {
		f.Close()
		return nil, "", err
	}
	return f, sheet, nil
}

func writeHeader(f *excelize.File, sheet string) error {
	header := make([]interface{}, len(columns))
	for i, name := range columns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}
