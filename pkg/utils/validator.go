package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	flowKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)
	// natural person (8-123-456, PE-1-23), legal entity (155612345-2-2019) and foreigner (E-8-12345) forms
	rucPattern     = regexp.MustCompile(`^(?:\d{1,2}|E|PE|N|\d{1,2}PI|\d{1,2}AV)-\d{1,4}-\d{1,6}$|^\d{1,10}-\d{1,4}-\d{4}$`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateFlowKey checks an import flow key supplied by a client
func ValidateFlowKey(key string) error {
	if !flowKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid flow key %q: use 1-64 letters, digits, '.', '_', ':' or '-'", key)
	}
	return nil
}

// ValidateRUC validates a Panamanian taxpayer number (RUC)
func ValidateRUC(ruc string) error {
	if !rucPattern.MatchString(strings.TrimSpace(ruc)) {
		return fmt.Errorf("invalid RUC format: %s", ruc)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlPattern.ReplaceAllString(s, ""))
}
