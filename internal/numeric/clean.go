// Package numeric cleans free-text numeric fields coming out of the
// extraction backend into exact decimal values. Extracted text is noisy
// (currency symbols, thousands separators, stray labels), so an
// unparsable value is a normal outcome, not an error.
package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Clean strips every character that is not a digit, "." or "-" from raw and
// parses the remainder as a decimal. ok is false when nothing parseable is
// left. Clean never returns an error: absent is a first-class result.
func Clean(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
