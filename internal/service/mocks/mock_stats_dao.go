package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/models"
)

// MockStatsDAO is a mock implementation of StatisticsStore
type MockStatsDAO struct {
	mock.Mock
}

func (m *MockStatsDAO) CollectStats(ctx context.Context) (*models.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SystemStats), args.Error(1)
}
