package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// MockReportDAO is a mock implementation of ReportStore
type MockReportDAO struct {
	mock.Mock
}

func (m *MockReportDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, report *models.Report) error {
	args := m.Called(ctx, tx, report)
	return args.Error(0)
}

func (m *MockReportDAO) GetByID(ctx context.Context, reportID string) (*models.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportDAO) Exists(ctx context.Context, reportID string) (bool, error) {
	args := m.Called(ctx, reportID)
	return args.Bool(0), args.Error(1)
}
