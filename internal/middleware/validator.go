package middleware

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateScanID checks that scanID is a canonical UUID.
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}
	if len(scanID) != 36 {
		return fmt.Errorf("invalid scan ID format")
	}
	if _, err := uuid.Parse(scanID); err != nil {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 50 // default
	}
	if limit > 200 {
		return 200 // max limit
	}
	return limit
}

// ValidatePage clamps the page number to 1 or more.
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
