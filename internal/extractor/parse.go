package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adars/invoice-ai/internal/models"
)

// requiredKeys must all be present in a backend response. A response missing
// any of them is rejected outright instead of silently substituting defaults.
var requiredKeys = []string{
	"partner", "vat_number", "cr_number", "street", "street2", "country",
	"email", "city", "mobile", "invoice_type", "invoice_bill_date",
	"reference", "invoice_lines", "detected_language",
}

var requiredLineKeys = []string{"product", "quantity", "unit_price", "gross_amount", "taxes"}

// parseRecord validates and decodes a raw model response into the shared
// record shape. It tolerates markdown code fences and surrounding prose
// (some models wrap their JSON despite instructions) but is strict about
// the schema itself.
func parseRecord(content string) (*models.RawExtractedRecord, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	text = text[start : end+1]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("response missing required key %q", key)
		}
	}

	var lines []map[string]json.RawMessage
	if err := json.Unmarshal(fields["invoice_lines"], &lines); err != nil {
		return nil, fmt.Errorf("invoice_lines is not an array of objects: %w", err)
	}
	for i, line := range lines {
		for _, key := range requiredLineKeys {
			if _, ok := line[key]; !ok {
				return nil, fmt.Errorf("invoice_lines[%d] missing required key %q", i, key)
			}
		}
	}

	var record models.RawExtractedRecord
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		// invoice_type must be a JSON boolean; a string here means the model
		// drifted back to the free-text label form.
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if record.Lines == nil {
		record.Lines = []models.RawLineItem{}
	}

	return &record, nil
}
