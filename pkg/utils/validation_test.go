package utils

import (
	"strings"
	"testing"
)

func TestValidateReportID(t *testing.T) {
	tests := []struct {
		name     string
		reportID string
		wantErr  bool
	}{
		{"Valid ID", "RPT-2024-001", false},
		{"Empty", "", true},
		{"Whitespace only", "   ", true},
		{"Too long", strings.Repeat("a", 256), true},
		{"Max length", strings.Repeat("a", 255), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReportID(tt.reportID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReportID(%q) error = %v, wantErr %v", tt.reportID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStatus(t *testing.T) {
	valid := []string{"pending", "approved", "rejected", "expired"}
	for _, status := range valid {
		if err := ValidateStatus(status); err != nil {
			t.Errorf("ValidateStatus(%q) returned unexpected error: %v", status, err)
		}
	}

	invalid := []string{"", "unknown", "PENDING", "done"}
	for _, status := range invalid {
		if err := ValidateStatus(status); err == nil {
			t.Errorf("ValidateStatus(%q) expected error, got nil", status)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid email", "approver@example.com", false},
		{"With display name", "Approver <approver@example.com>", false},
		{"Empty", "", true},
		{"Missing domain", "approver@", true},
		{"Not an address", "not-an-email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectReason(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		minLen  int
		wantErr bool
	}{
		{"Long enough", "the data in table 3 is wrong", 10, false},
		{"Exactly minimum", "1234567890", 10, false},
		{"Too short", "too short", 10, true},
		{"Empty", "", 10, true},
		{"Whitespace padding ignored", "   short   ", 10, true},
		{"Multibyte runes counted once", "データが不完全です数値", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRejectReason(tt.reason, tt.minLen)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRejectReason(%q, %d) error = %v, wantErr %v", tt.reason, tt.minLen, err, tt.wantErr)
			}
		})
	}
}
