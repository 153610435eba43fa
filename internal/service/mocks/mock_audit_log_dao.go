package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// MockAuditLogDAO is a mock implementation of AuditLogStore
type MockAuditLogDAO struct {
	mock.Mock
}

func (m *MockAuditLogDAO) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogDAO) AppendWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLogEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockAuditLogDAO) ListByReportID(ctx context.Context, reportID string, limit, offset int) ([]models.AuditLogEntry, error) {
	args := m.Called(ctx, reportID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLogEntry), args.Error(1)
}
