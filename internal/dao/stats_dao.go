package dao

import (
	"context"
	"fmt"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// StatsDAO aggregates counters over the approval tables
type StatsDAO struct {
	db *database.DB
}

// NewStatsDAO creates a new StatsDAO instance
func NewStatsDAO(db *database.DB) *StatsDAO {
	return &StatsDAO{db: db}
}

// CollectStats computes the system-wide approval statistics in a single pass
// over APPROVAL_RECORD plus one scan of APPROVAL_REPORT for today's
// submissions. COALESCE keeps the aggregates zero-valued on an empty store.
func (dao *StatsDAO) CollectStats(ctx context.Context) (*models.SystemStats, error) {
	recordQuery := `
		SELECT
			COUNT(*) AS TOTAL_RECORDS,
			COALESCE(SUM(CASE WHEN STATUS = 'pending' THEN 1 ELSE 0 END), 0) AS PENDING_APPROVALS,
			COALESCE(SUM(CASE WHEN STATUS = 'approved' THEN 1 ELSE 0 END), 0) AS APPROVED_RECORDS,
			COALESCE(SUM(CASE WHEN STATUS = 'rejected' THEN 1 ELSE 0 END), 0) AS REJECTED_RECORDS,
			COALESCE(SUM(CASE WHEN STATUS = 'expired' THEN 1 ELSE 0 END), 0) AS EXPIRED_RECORDS,
			COALESCE(AVG(CASE WHEN PROCESSED_AT IS NOT NULL
				THEN (PROCESSED_AT - CREATED_AT) / 60000.0 END), 0) AS AVG_DECISION_TIME_MINUTES
		FROM APPROVAL_RECORD
	`

	var row struct {
		TotalRecords           int     `db:"TOTAL_RECORDS"`
		PendingApprovals       int     `db:"PENDING_APPROVALS"`
		ApprovedRecords        int     `db:"APPROVED_RECORDS"`
		RejectedRecords        int     `db:"REJECTED_RECORDS"`
		ExpiredRecords         int     `db:"EXPIRED_RECORDS"`
		AvgDecisionTimeMinutes float64 `db:"AVG_DECISION_TIME_MINUTES"`
	}

	if err := dao.db.GetContext(ctx, &row, recordQuery); err != nil {
		return nil, fmt.Errorf("failed to collect record statistics: %w", err)
	}

	todayQuery := `
		SELECT COUNT(*)
		FROM APPROVAL_REPORT
		WHERE DATE(FROM_UNIXTIME(CREATED_AT / 1000)) = CURDATE()
	`

	var todaySubmissions int
	if err := dao.db.GetContext(ctx, &todaySubmissions, todayQuery); err != nil {
		return nil, fmt.Errorf("failed to collect submission statistics: %w", err)
	}

	return &models.SystemStats{
		TotalRecords:           row.TotalRecords,
		PendingApprovals:       row.PendingApprovals,
		ApprovedRecords:        row.ApprovedRecords,
		RejectedRecords:        row.RejectedRecords,
		ExpiredRecords:         row.ExpiredRecords,
		TodaySubmissions:       todaySubmissions,
		AvgDecisionTimeMinutes: row.AvgDecisionTimeMinutes,
	}, nil
}
