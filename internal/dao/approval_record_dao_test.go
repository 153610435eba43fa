package dao

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return database.New(sqlx.NewDb(mockDB, "mysql"), logger), mock
}

func recordColumns() []string {
	return []string{
		"RECORD_ID", "REPORT_ID", "STAGE", "APPROVER_EMAIL", "TOKEN", "STATUS",
		"CREATED_AT", "PROCESSED_AT", "PROCESSOR_IP", "PROCESSOR_USER_AGENT", "REASON",
	}
}

func TestTransition_WinnerAffectsOneRow(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	mock.ExpectExec("UPDATE APPROVAL_RECORD").
		WithArgs(models.StatusApproved, int64(1700000000000), "192.168.1.10", nil, nil, "token-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := recordDAO.Transition(context.Background(), "token-1", models.StatusApproved, 1700000000000, "192.168.1.10", nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition_AlreadyProcessedAffectsZeroRows(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	// the pending-only guard in the WHERE clause matched nothing
	mock.ExpectExec("UPDATE APPROVAL_RECORD").
		WithArgs(models.StatusRejected, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "token-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	reason := "insufficient supporting data"
	rows, err := recordDAO.Transition(context.Background(), "token-1", models.StatusRejected, 1700000000000, "192.168.1.10", nil, &reason)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateTokenMapped(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	mock.ExpectExec("INSERT INTO APPROVAL_RECORD").
		WillReturnError(&mysql.MySQLError{
			Number:  1062,
			Message: "Duplicate entry 'token-1' for key 'UQ_APPROVAL_RECORD_TOKEN'",
		})

	record := &models.ApprovalRecord{
		RecordID:      "RECORD-1",
		ReportID:      "RPT-1",
		Stage:         1,
		ApproverEmail: "approver@example.com",
		Token:         "token-1",
		Status:        models.StatusPending,
		CreatedAt:     1700000000000,
	}

	err := recordDAO.Create(context.Background(), record)

	assert.ErrorIs(t, err, ErrDuplicateToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_StageConflictIsNotATokenCollision(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	// same error number, different unique key; retrying with a fresh token
	// would never resolve this
	mock.ExpectExec("INSERT INTO APPROVAL_RECORD").
		WillReturnError(&mysql.MySQLError{
			Number:  1062,
			Message: "Duplicate entry 'RPT-1-2' for key 'UQ_APPROVAL_RECORD_STAGE'",
		})

	err := recordDAO.Create(context.Background(), &models.ApprovalRecord{
		RecordID: "RECORD-2",
		ReportID: "RPT-1",
		Stage:    2,
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_OtherErrorsAreWrapped(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	mock.ExpectExec("INSERT INTO APPROVAL_RECORD").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})

	err := recordDAO.Create(context.Background(), &models.ApprovalRecord{RecordID: "RECORD-1"})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByToken_NotFoundReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	mock.ExpectQuery("SELECT (.+) FROM APPROVAL_RECORD").
		WithArgs("missing-token").
		WillReturnError(sql.ErrNoRows)

	record, err := recordDAO.GetByToken(context.Background(), "missing-token")

	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByToken_Found(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	rows := sqlmock.NewRows(recordColumns()).
		AddRow("RECORD-1", "RPT-1", 1, "approver@example.com", "token-1", "pending",
			int64(1700000000000), nil, nil, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM APPROVAL_RECORD").
		WithArgs("token-1").
		WillReturnRows(rows)

	record, err := recordDAO.GetByToken(context.Background(), "token-1")

	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Equal(t, "RPT-1", record.ReportID)
	assert.Equal(t, 1, record.Stage)
	assert.True(t, record.IsPending())
	assert.Nil(t, record.ProcessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllByReportID_OrdersByStage(t *testing.T) {
	db, mock := newMockDB(t)
	recordDAO := NewApprovalRecordDAO(db)

	rows := sqlmock.NewRows(recordColumns()).
		AddRow("RECORD-1", "RPT-1", 1, "first@example.com", "token-1", "approved",
			int64(1700000000000), int64(1700000100000), "192.168.1.10", nil, nil).
		AddRow("RECORD-2", "RPT-1", 2, "second@example.com", "token-2", "pending",
			int64(1700000100000), nil, nil, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM APPROVAL_RECORD").
		WithArgs("RPT-1").
		WillReturnRows(rows)

	records, err := recordDAO.GetAllByReportID(context.Background(), "RPT-1")

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Stage)
	assert.Equal(t, 2, records[1].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
