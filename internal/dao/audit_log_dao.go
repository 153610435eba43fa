package dao

import (
	"context"
	"fmt"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// AuditLogDAO handles database operations for the append-only audit log
type AuditLogDAO struct {
	db *database.DB
}

// NewAuditLogDAO creates a new AuditLogDAO instance
func NewAuditLogDAO(db *database.DB) *AuditLogDAO {
	return &AuditLogDAO{db: db}
}

const insertAuditQuery = `
	INSERT INTO APPROVAL_AUDIT_LOG (
		REPORT_ID, ACTION, IP_ADDRESS, USER_AGENT, ACTION_TIME, DETAILS
	) VALUES (?, ?, ?, ?, ?, ?)
`

// Append writes a new audit log entry
func (dao *AuditLogDAO) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	_, err := dao.db.ExecContext(
		ctx,
		insertAuditQuery,
		entry.ReportID,
		entry.Action,
		entry.IPAddress,
		entry.UserAgent,
		entry.Timestamp,
		entry.Details,
	)

	if err != nil {
		return fmt.Errorf("failed to append audit log entry: %w", err)
	}

	return nil
}

// AppendWithTx writes a new audit log entry using a transaction
func (dao *AuditLogDAO) AppendWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLogEntry) error {
	_, err := tx.ExecContext(
		ctx,
		insertAuditQuery,
		entry.ReportID,
		entry.Action,
		entry.IPAddress,
		entry.UserAgent,
		entry.Timestamp,
		entry.Details,
	)

	if err != nil {
		return fmt.Errorf("failed to append audit log entry with transaction: %w", err)
	}

	return nil
}

// ListByReportID retrieves the audit trail of a report in insertion order
func (dao *AuditLogDAO) ListByReportID(ctx context.Context, reportID string, limit, offset int) ([]models.AuditLogEntry, error) {
	query := `
		SELECT ID, REPORT_ID, ACTION, IP_ADDRESS, USER_AGENT, ACTION_TIME, DETAILS
		FROM APPROVAL_AUDIT_LOG
		WHERE REPORT_ID = ?
		ORDER BY ID ASC
		LIMIT ? OFFSET ?
	`

	var entries []models.AuditLogEntry
	err := dao.db.SelectContext(ctx, &entries, query, reportID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}

	return entries, nil
}
