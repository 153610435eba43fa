package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// mysqlDuplicateEntry is the MySQL error number for unique key violations
const mysqlDuplicateEntry = 1062

// tokenUniqueKey is the unique index on APPROVAL_RECORD.TOKEN
const tokenUniqueKey = "UQ_APPROVAL_RECORD_TOKEN"

// ErrDuplicateToken is returned when an insert collides with an existing
// approval token. Callers retry with a freshly issued token.
var ErrDuplicateToken = errors.New("approval token already exists")

// ApprovalRecordDAO handles database operations for approval records
type ApprovalRecordDAO struct {
	db *database.DB
}

// NewApprovalRecordDAO creates a new ApprovalRecordDAO instance
func NewApprovalRecordDAO(db *database.DB) *ApprovalRecordDAO {
	return &ApprovalRecordDAO{db: db}
}

const insertRecordQuery = `
	INSERT INTO APPROVAL_RECORD (
		RECORD_ID, REPORT_ID, STAGE, APPROVER_EMAIL, TOKEN, STATUS,
		CREATED_AT, PROCESSED_AT, PROCESSOR_IP, PROCESSOR_USER_AGENT, REASON
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create inserts a new approval record into the database
func (dao *ApprovalRecordDAO) Create(ctx context.Context, record *models.ApprovalRecord) error {
	_, err := dao.db.ExecContext(
		ctx,
		insertRecordQuery,
		record.RecordID,
		record.ReportID,
		record.Stage,
		record.ApproverEmail,
		record.Token,
		record.Status,
		record.CreatedAt,
		record.ProcessedAt,
		record.ProcessorIP,
		record.ProcessorUserAgent,
		record.Reason,
	)

	if err != nil {
		if isDuplicateToken(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	return nil
}

// CreateWithTx inserts a new approval record using a transaction
func (dao *ApprovalRecordDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ApprovalRecord) error {
	_, err := tx.ExecContext(
		ctx,
		insertRecordQuery,
		record.RecordID,
		record.ReportID,
		record.Stage,
		record.ApproverEmail,
		record.Token,
		record.Status,
		record.CreatedAt,
		record.ProcessedAt,
		record.ProcessorIP,
		record.ProcessorUserAgent,
		record.Reason,
	)

	if err != nil {
		if isDuplicateToken(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to create approval record with transaction: %w", err)
	}

	return nil
}

const selectRecordColumns = `
	SELECT RECORD_ID, REPORT_ID, STAGE, APPROVER_EMAIL, TOKEN, STATUS,
	       CREATED_AT, PROCESSED_AT, PROCESSOR_IP, PROCESSOR_USER_AGENT, REASON
	FROM APPROVAL_RECORD
`

// GetByToken retrieves an approval record by its token.
// Returns (nil, nil) when no record carries the token.
func (dao *ApprovalRecordDAO) GetByToken(ctx context.Context, token string) (*models.ApprovalRecord, error) {
	query := selectRecordColumns + ` WHERE TOKEN = ?`

	var record models.ApprovalRecord
	err := dao.db.GetContext(ctx, &record, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get approval record by token: %w", err)
	}

	return &record, nil
}

// GetLatestByReportID retrieves the highest-stage record of a report.
// Returns (nil, nil) when the report has no records.
func (dao *ApprovalRecordDAO) GetLatestByReportID(ctx context.Context, reportID string) (*models.ApprovalRecord, error) {
	query := selectRecordColumns + ` WHERE REPORT_ID = ? ORDER BY STAGE DESC LIMIT 1`

	var record models.ApprovalRecord
	err := dao.db.GetContext(ctx, &record, query, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest approval record: %w", err)
	}

	return &record, nil
}

// GetAllByReportID retrieves every record of a report ordered by stage
func (dao *ApprovalRecordDAO) GetAllByReportID(ctx context.Context, reportID string) ([]models.ApprovalRecord, error) {
	query := selectRecordColumns + ` WHERE REPORT_ID = ? ORDER BY STAGE ASC`

	var records []models.ApprovalRecord
	err := dao.db.SelectContext(ctx, &records, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval records: %w", err)
	}

	return records, nil
}

const transitionQuery = `
	UPDATE APPROVAL_RECORD
	SET STATUS = ?, PROCESSED_AT = ?, PROCESSOR_IP = ?, PROCESSOR_USER_AGENT = ?, REASON = ?
	WHERE TOKEN = ? AND STATUS = 'pending'
`

// Transition moves a pending record to a terminal status. The status guard in
// the WHERE clause makes the update conditional: the returned row count is 1
// for the caller that won the transition and 0 for everyone else.
func (dao *ApprovalRecordDAO) Transition(ctx context.Context, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error) {
	result, err := dao.db.ExecContext(ctx, transitionQuery, newStatus, processedAt, processorIP, userAgent, reason, token)
	if err != nil {
		return 0, fmt.Errorf("failed to transition approval record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// TransitionWithTx moves a pending record to a terminal status using a transaction
func (dao *ApprovalRecordDAO) TransitionWithTx(ctx context.Context, tx *database.Transaction, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error) {
	result, err := tx.ExecContext(ctx, transitionQuery, newStatus, processedAt, processorIP, userAgent, reason, token)
	if err != nil {
		return 0, fmt.Errorf("failed to transition approval record with transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// isDuplicateToken reports whether err is a unique key violation on the token
// index. The (REPORT_ID, STAGE) key raises the same error number; the key name
// in the driver message tells them apart, and only a token collision may be
// retried with a fresh token.
func isDuplicateToken(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlDuplicateEntry {
		return false
	}
	return strings.Contains(mysqlErr.Message, tokenUniqueKey)
}
