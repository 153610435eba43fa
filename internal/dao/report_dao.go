package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// ReportDAO handles database operations for submitted reports
type ReportDAO struct {
	db *database.DB
}

// NewReportDAO creates a new ReportDAO instance
func NewReportDAO(db *database.DB) *ReportDAO {
	return &ReportDAO{db: db}
}

// Create inserts a new report into the database
func (dao *ReportDAO) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO APPROVAL_REPORT (
			REPORT_ID, TITLE, CONTENT, OPERATOR, APPROVERS, CLIENT_IP, CREATED_AT
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		report.ReportID,
		report.Title,
		report.Content,
		report.Operator,
		report.Approvers,
		report.ClientIP,
		report.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// CreateWithTx inserts a new report using a transaction
func (dao *ReportDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, report *models.Report) error {
	query := `
		INSERT INTO APPROVAL_REPORT (
			REPORT_ID, TITLE, CONTENT, OPERATOR, APPROVERS, CLIENT_IP, CREATED_AT
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		report.ReportID,
		report.Title,
		report.Content,
		report.Operator,
		report.Approvers,
		report.ClientIP,
		report.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create report with transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a report by ID. Returns (nil, nil) when no report exists.
func (dao *ReportDAO) GetByID(ctx context.Context, reportID string) (*models.Report, error) {
	query := `
		SELECT REPORT_ID, TITLE, CONTENT, OPERATOR, APPROVERS, CLIENT_IP, CREATED_AT
		FROM APPROVAL_REPORT
		WHERE REPORT_ID = ?
	`

	var report models.Report
	err := dao.db.GetContext(ctx, &report, query, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

// Exists checks whether a report with the given ID is already stored
func (dao *ReportDAO) Exists(ctx context.Context, reportID string) (bool, error) {
	query := `SELECT COUNT(*) FROM APPROVAL_REPORT WHERE REPORT_ID = ?`

	var count int
	if err := dao.db.GetContext(ctx, &count, query, reportID); err != nil {
		return false, fmt.Errorf("failed to check report existence: %w", err)
	}

	return count > 0, nil
}
