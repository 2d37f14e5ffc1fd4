package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
	"partner": "Alinma Bank",
	"vat_number": "300002471110003",
	"cr_number": "1010250808",
	"street": "King Fahd Road",
	"street2": "None",
	"country": "Saudi Arabia",
	"email": "info@alinma.com",
	"city": "Riyadh",
	"mobile": "8001201010",
	"invoice_type": true,
	"invoice_bill_date": "2024-11-19",
	"reference": "TRX-102938",
	"invoice_lines": [
		{"product": "Commission", "quantity": "1", "unit_price": "25", "gross_amount": "25", "taxes": "15%"}
	],
	"detected_language": "English"
}`

func TestParseRecord(t *testing.T) {
	record, err := parseRecord(validResponse)
	require.NoError(t, err)

	assert.Equal(t, "Alinma Bank", record.Partner)
	assert.True(t, record.TaxInvoice)
	assert.Equal(t, "2024-11-19", record.InvoiceBillDate)
	require.Len(t, record.Lines, 1)
	assert.Equal(t, "Commission", record.Lines[0].Product)
	assert.Equal(t, "15%", record.Lines[0].Tax)
}

func TestParseRecord_StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"

	record, err := parseRecord(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Alinma Bank", record.Partner)
}

func TestParseRecord_SurroundingProse(t *testing.T) {
	wrapped := "Here is the extracted data:\n" + validResponse + "\nLet me know if you need anything else."

	record, err := parseRecord(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "TRX-102938", record.Reference)
}

func TestParseRecord_RejectsMissingKey(t *testing.T) {
	// Drop vat_number from the response.
	truncated := strings.Replace(validResponse, `"vat_number": "300002471110003",`, "", 1)

	_, err := parseRecord(truncated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vat_number")
}

func TestParseRecord_RejectsMissingLineKey(t *testing.T) {
	damaged := strings.Replace(validResponse, `"unit_price": "25", `, "", 1)

	_, err := parseRecord(damaged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_price")
}

func TestParseRecord_RejectsTextualInvoiceType(t *testing.T) {
	// The canonical form is a boolean; a free-text label is a schema violation.
	textual := strings.Replace(validResponse, `"invoice_type": true`, `"invoice_type": "Tax Invoice"`, 1)

	_, err := parseRecord(textual)
	assert.Error(t, err)
}

func TestParseRecord_EmptyLines(t *testing.T) {
	empty := strings.Replace(validResponse,
		`[
		{"product": "Commission", "quantity": "1", "unit_price": "25", "gross_amount": "25", "taxes": "15%"}
	]`, "[]", 1)

	record, err := parseRecord(empty)
	require.NoError(t, err)
	assert.NotNil(t, record.Lines)
	assert.Empty(t, record.Lines)
}

func TestParseRecord_NotJSON(t *testing.T) {
	_, err := parseRecord("I could not read the document.")
	assert.Error(t, err)
}

func TestFailureError(t *testing.T) {
	err := &Failure{Backend: BackendOpenAI, Reason: "connection refused"}
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "connection refused")
}
