package utils

import (
	"fmt"
	"regexp"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	vatRegex   = regexp.MustCompile(`^3\d{14}$`)
	ctrlRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateVATNumber validates a KSA VAT registration number
// (15 digits, starting with 3)
func ValidateVATNumber(vatNumber string) error {
	if !vatRegex.MatchString(vatNumber) {
		return fmt.Errorf("invalid VAT number format: %s", vatNumber)
	}
	return nil
}

// SanitizeString removes control characters from extracted text
func SanitizeString(s string) string {
	return ctrlRegex.ReplaceAllString(s, "")
}
