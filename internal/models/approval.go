package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Approval record statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

// Audit log actions
const (
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionExpire  = "expire"
)

// Decision outcomes returned by the decide operation
const (
	OutcomeAdvanced      = "advanced_to_next_stage"
	OutcomeFinalApproved = "final_approved"
	OutcomeRejected      = "rejected"
)

// Report represents the APPROVAL_REPORT table
type Report struct {
	ReportID  string `db:"REPORT_ID" json:"reportId"`
	Title     string `db:"TITLE" json:"title"`
	Content   string `db:"CONTENT" json:"content"`
	Operator  string `db:"OPERATOR" json:"operator"`
	Approvers JSON   `db:"APPROVERS" json:"approvers"`
	ClientIP  string `db:"CLIENT_IP" json:"clientIp"`
	CreatedAt int64  `db:"CREATED_AT" json:"createdAt"`
}

// ApproverList decodes the ordered per-stage approver e-mails
func (r *Report) ApproverList() ([]string, error) {
	var approvers []string
	if err := json.Unmarshal(r.Approvers, &approvers); err != nil {
		return nil, fmt.Errorf("failed to decode approver list: %w", err)
	}
	return approvers, nil
}

// SetApprovers encodes the ordered per-stage approver e-mails
func (r *Report) SetApprovers(approvers []string) error {
	data, err := json.Marshal(approvers)
	if err != nil {
		return fmt.Errorf("failed to encode approver list: %w", err)
	}
	r.Approvers = JSON(data)
	return nil
}

// ApprovalRecord represents the APPROVAL_RECORD table.
// One record exists per (report, stage); the token is live only while the
// record is pending.
type ApprovalRecord struct {
	RecordID           string  `db:"RECORD_ID" json:"recordId"`
	ReportID           string  `db:"REPORT_ID" json:"reportId"`
	Stage              int     `db:"STAGE" json:"stage"`
	ApproverEmail      string  `db:"APPROVER_EMAIL" json:"approverEmail"`
	Token              string  `db:"TOKEN" json:"-"`
	Status             string  `db:"STATUS" json:"status"`
	CreatedAt          int64   `db:"CREATED_AT" json:"createdAt"`
	ProcessedAt        *int64  `db:"PROCESSED_AT" json:"processedAt,omitempty"`
	ProcessorIP        *string `db:"PROCESSOR_IP" json:"processorIp,omitempty"`
	ProcessorUserAgent *string `db:"PROCESSOR_USER_AGENT" json:"processorUserAgent,omitempty"`
	Reason             *string `db:"REASON" json:"reason,omitempty"`
}

// IsPending reports whether the record can still be decided
func (r *ApprovalRecord) IsPending() bool {
	return r.Status == StatusPending
}

// JSON type for handling JSON fields in MySQL
type JSON json.RawMessage

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON: %T", value)
	}

	var temp interface{}
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return fmt.Errorf("invalid JSON data: %w", err)
	}

	cleanBytes, err := json.Marshal(temp)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	*j = JSON(cleanBytes)
	return nil
}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// MarshalJSON implements json.Marshaler
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = JSON(data)
	return nil
}

// SubmitReportRequest represents the API payload for submitting a report
// for approval. Approvers are ordered; one approval stage per entry.
type SubmitReportRequest struct {
	ReportID  string   `json:"reportId" binding:"required"`
	Title     string   `json:"title" binding:"required"`
	Content   string   `json:"content" binding:"required"`
	Operator  string   `json:"operator" binding:"required"`
	Approvers []string `json:"approvers" binding:"required,min=1,dive,email"`
}

// SubmitReportResponse is returned after a successful submission.
// NotificationSent is false when the record was persisted but the approver
// mail could not be delivered; the workflow is still live in that case.
type SubmitReportResponse struct {
	ReportID         string `json:"reportId"`
	RecordID         string `json:"recordId"`
	Stage            int    `json:"stage"`
	Token            string `json:"token"`
	TotalStages      int    `json:"totalStages"`
	NotificationSent bool   `json:"notificationSent"`
	Message          string `json:"message"`
}

// DecisionRequest represents the API payload for deciding a pending record
type DecisionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Reason string `json:"reason,omitempty"`
}

// DecisionResponse is returned after a decision is applied
type DecisionResponse struct {
	ReportID         string `json:"reportId"`
	Stage            int    `json:"stage"`
	Outcome          string `json:"outcome"`
	NextStage        *int   `json:"nextStage,omitempty"`
	NotificationSent *bool  `json:"notificationSent,omitempty"`
}

// RecordResponse exposes a record to the approval confirmation flow
type RecordResponse struct {
	ReportID      string  `json:"reportId"`
	Title         string  `json:"title"`
	Operator      string  `json:"operator"`
	Stage         int     `json:"stage"`
	TotalStages   int     `json:"totalStages"`
	ApproverEmail string  `json:"approverEmail"`
	Status        string  `json:"status"`
	CreatedAt     int64   `json:"createdAt"`
	Reason        *string `json:"reason,omitempty"`
}

// StatusResponse represents the approval status of a report
type StatusResponse struct {
	ReportID      string  `json:"reportId"`
	Title         string  `json:"title"`
	Operator      string  `json:"operator"`
	Status        string  `json:"status"`
	Stage         int     `json:"stage"`
	TotalStages   int     `json:"totalStages"`
	ApproverEmail string  `json:"approverEmail"`
	CreatedAt     int64   `json:"createdAt"`
	ProcessedAt   *int64  `json:"processedAt,omitempty"`
	Reason        *string `json:"reason,omitempty"`
}

// ApproverNotification carries everything a dispatcher needs to notify the
// approver of a newly created pending record
type ApproverNotification struct {
	Recipient   string
	ReportID    string
	ReportTitle string
	Operator    string
	Stage       int
	TotalStages int
	DetailURL   string
	ApproveURL  string
	RejectURL   string
}

// SystemStats holds aggregate counters derived from the record store
type SystemStats struct {
	TotalRecords           int     `json:"totalRecords"`
	PendingApprovals       int     `json:"pendingApprovals"`
	ApprovedRecords        int     `json:"approvedRecords"`
	RejectedRecords        int     `json:"rejectedRecords"`
	ExpiredRecords         int     `json:"expiredRecords"`
	TodaySubmissions       int     `json:"todaySubmissions"`
	AvgDecisionTimeMinutes float64 `json:"avgDecisionTimeMinutes"`
}
