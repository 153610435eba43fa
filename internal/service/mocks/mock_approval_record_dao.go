package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// MockApprovalRecordDAO is a mock implementation of ApprovalRecordStore
type MockApprovalRecordDAO struct {
	mock.Mock
}

func (m *MockApprovalRecordDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ApprovalRecord) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockApprovalRecordDAO) GetByToken(ctx context.Context, token string) (*models.ApprovalRecord, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordDAO) GetLatestByReportID(ctx context.Context, reportID string) (*models.ApprovalRecord, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordDAO) GetAllByReportID(ctx context.Context, reportID string) ([]models.ApprovalRecord, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordDAO) Transition(ctx context.Context, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error) {
	args := m.Called(ctx, token, newStatus, processedAt, processorIP, userAgent, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockApprovalRecordDAO) TransitionWithTx(ctx context.Context, tx *database.Transaction, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error) {
	args := m.Called(ctx, tx, token, newStatus, processedAt, processorIP, userAgent, reason)
	return args.Get(0).(int64), args.Error(1)
}
