package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/models"
)

// MockDispatcher is a mock implementation of NotificationDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, note *models.ApproverNotification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
