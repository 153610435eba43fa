package utils

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidateReportID validates report ID format
func ValidateReportID(reportID string) error {
	if strings.TrimSpace(reportID) == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	if len(reportID) > 255 {
		return fmt.Errorf("report ID too long (max 255 characters)")
	}
	return nil
}

// ValidateRequired checks that a named field is non-blank
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// ValidateStatus validates an approval record status
func ValidateStatus(status string) error {
	if status == "" {
		return fmt.Errorf("status cannot be empty")
	}

	validStatuses := map[string]bool{
		"pending":  true,
		"approved": true,
		"rejected": true,
		"expired":  true,
	}

	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}

// ValidateRejectReason checks a rejection reason against the minimum length.
// Length is counted in runes so multi-byte scripts are not penalized.
func ValidateRejectReason(reason string, minLength int) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return fmt.Errorf("rejection reason is required")
	}
	if len([]rune(trimmed)) < minLength {
		return fmt.Errorf("rejection reason too short (min %d characters)", minLength)
	}
	return nil
}
