package models

// AuditLogEntry represents the APPROVAL_AUDIT_LOG table.
// Entries are append-only; nothing in the service ever updates or deletes
// them.
type AuditLogEntry struct {
	ID        int64   `db:"ID" json:"id"`
	ReportID  string  `db:"REPORT_ID" json:"reportId"`
	Action    string  `db:"ACTION" json:"action"`
	IPAddress string  `db:"IP_ADDRESS" json:"ipAddress"`
	UserAgent *string `db:"USER_AGENT" json:"userAgent,omitempty"`
	Timestamp int64   `db:"ACTION_TIME" json:"timestamp"`
	Details   *string `db:"DETAILS" json:"details,omitempty"`
}
