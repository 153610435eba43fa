package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/models"
	"github.com/reportflow/approval-management-api/internal/service/mocks"
)

const (
	testClientIP  = "192.168.1.10"
	testUserAgent = "test-agent/1.0"
)

func newSubmitRequest(approvers ...string) *models.SubmitReportRequest {
	if len(approvers) == 0 {
		approvers = []string{"approver1@example.com"}
	}
	return &models.SubmitReportRequest{
		ReportID:  "RPT-2024-001",
		Title:     "Weekly lab report",
		Content:   "Measurement results for batch 42.",
		Operator:  "operator@example.com",
		Approvers: approvers,
	}
}

func TestSubmitReport_CreatesPendingFirstStage(t *testing.T) {
	store := newMemoryStore()
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(newTestConfig(), store, dispatcher)

	resp, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)

	assert.NoError(t, err)
	assert.Equal(t, "RPT-2024-001", resp.ReportID)
	assert.Equal(t, 1, resp.Stage)
	assert.Equal(t, 1, resp.TotalStages)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.NotificationSent)

	record, err := store.GetByToken(context.Background(), resp.Token)
	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Equal(t, "approver1@example.com", record.ApproverEmail)

	entries, err := store.ListByReportID(context.Background(), "RPT-2024-001", 10, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, models.ActionSubmit, entries[0].Action)

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestSubmitReport_DeniedOriginLeavesNoTrace(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	resp, err := svc.SubmitReport(context.Background(), newSubmitRequest(), "203.0.113.5", testUserAgent)

	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Nil(t, resp)

	exists, _ := store.Exists(context.Background(), "RPT-2024-001")
	assert.False(t, exists)
	assert.Empty(t, store.audits)
}

func TestSubmitReport_DuplicateReportID(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	_, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	_, err = svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrReportExists)
}

func TestSubmitReport_NotificationFailureDegrades(t *testing.T) {
	store := newMemoryStore()
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("smtp unreachable"))
	svc := newTestService(newTestConfig(), store, dispatcher)

	resp, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)

	assert.NoError(t, err)
	assert.False(t, resp.NotificationSent)

	// the workflow stays live despite the failed mail
	record, _ := store.GetByToken(context.Background(), resp.Token)
	assert.NotNil(t, record)
	assert.Equal(t, models.StatusPending, record.Status)
}

func TestDecide_SingleStageFinalApproval(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	resp, err := svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)

	assert.NoError(t, err)
	assert.Equal(t, models.OutcomeFinalApproved, resp.Outcome)
	assert.Equal(t, 1, resp.Stage)
	assert.Nil(t, resp.NextStage)

	record, _ := store.GetByToken(context.Background(), submitted.Token)
	assert.Equal(t, models.StatusApproved, record.Status)
	assert.NotNil(t, record.ProcessedAt)
}

func TestDecide_ApprovalAdvancesToNextStage(t *testing.T) {
	store := newMemoryStore()
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(newTestConfig(), store, dispatcher)

	submitted, err := svc.SubmitReport(
		context.Background(),
		newSubmitRequest("first@example.com", "second@example.com"),
		testClientIP, testUserAgent,
	)
	assert.NoError(t, err)
	assert.Equal(t, 2, submitted.TotalStages)

	resp, err := svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)

	assert.NoError(t, err)
	assert.Equal(t, models.OutcomeAdvanced, resp.Outcome)
	if assert.NotNil(t, resp.NextStage) {
		assert.Equal(t, 2, *resp.NextStage)
	}
	if assert.NotNil(t, resp.NotificationSent) {
		assert.True(t, *resp.NotificationSent)
	}

	next, err := store.GetLatestByReportID(context.Background(), "RPT-2024-001")
	assert.NoError(t, err)
	assert.Equal(t, 2, next.Stage)
	assert.Equal(t, models.StatusPending, next.Status)
	assert.Equal(t, "second@example.com", next.ApproverEmail)
	assert.NotEqual(t, submitted.Token, next.Token)

	// submit mail + stage-2 mail
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestDecide_RejectionIsTerminal(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(
		context.Background(),
		newSubmitRequest("first@example.com", "second@example.com"),
		testClientIP, testUserAgent,
	)
	assert.NoError(t, err)

	resp, err := svc.Decide(context.Background(), submitted.Token, models.ActionReject, "measurements are inconsistent", testClientIP, testUserAgent)

	assert.NoError(t, err)
	assert.Equal(t, models.OutcomeRejected, resp.Outcome)
	assert.Nil(t, resp.NextStage)

	// no stage-2 record was created
	records, _ := store.GetAllByReportID(context.Background(), "RPT-2024-001")
	assert.Len(t, records, 1)
	assert.Equal(t, models.StatusRejected, records[0].Status)
	if assert.NotNil(t, records[0].Reason) {
		assert.Equal(t, "measurements are inconsistent", *records[0].Reason)
	}

	// the token is spent
	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestDecide_RejectReasonTooShort(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionReject, "too short", testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrInvalidReason)

	// record is untouched
	record, _ := store.GetByToken(context.Background(), submitted.Token)
	assert.Equal(t, models.StatusPending, record.Status)
}

func TestDecide_UnknownAction(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	_, err = svc.Decide(context.Background(), submitted.Token, "frobnicate", "", testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrInvalidAction)

	record, _ := store.GetByToken(context.Background(), submitted.Token)
	assert.Equal(t, models.StatusPending, record.Status)
}

func TestDecide_InvalidToken(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	_, err := svc.Decide(context.Background(), "no-such-token", models.ActionApprove, "", testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecide_DeniedOrigin(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", "198.51.100.20", testUserAgent)
	assert.ErrorIs(t, err, ErrAccessDenied)

	record, _ := store.GetByToken(context.Background(), submitted.Token)
	assert.Equal(t, models.StatusPending, record.Status)
}

func TestDecide_ExpiredToken(t *testing.T) {
	cfg := newTestConfig()
	cfg.Approval.TokenTTL = time.Minute
	store := newMemoryStore()
	svc := newTestService(cfg, store, nil)

	submitted, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	// age the record past its TTL
	store.mu.Lock()
	store.records[submitted.Token].CreatedAt -= 2 * time.Minute.Milliseconds()
	store.mu.Unlock()

	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrTokenExpired)

	record, _ := store.GetByToken(context.Background(), submitted.Token)
	assert.Equal(t, models.StatusExpired, record.Status)

	// expired is terminal
	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestDecide_ConcurrentDecisionsHaveOneWinner(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = svc.Decide(context.Background(), submitted.Token, models.ActionReject, "duplicated data in section two", testClientIP, testUserAgent)
	}()
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyProcessed)
		}
	}
	assert.Equal(t, 1, winners)

	record, _ := store.GetByToken(context.Background(), submitted.Token)
	assert.Contains(t, []string{models.StatusApproved, models.StatusRejected}, record.Status)
}

func TestGetRecordByToken(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(
		context.Background(),
		newSubmitRequest("first@example.com", "second@example.com"),
		testClientIP, testUserAgent,
	)
	assert.NoError(t, err)

	resp, err := svc.GetRecordByToken(context.Background(), submitted.Token, testClientIP)

	assert.NoError(t, err)
	assert.Equal(t, "RPT-2024-001", resp.ReportID)
	assert.Equal(t, "Weekly lab report", resp.Title)
	assert.Equal(t, 1, resp.Stage)
	assert.Equal(t, 2, resp.TotalStages)
	assert.Equal(t, "first@example.com", resp.ApproverEmail)
	assert.Equal(t, models.StatusPending, resp.Status)
}

func TestGetStatus_TracksWorkflowProgress(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(
		context.Background(),
		newSubmitRequest("first@example.com", "second@example.com"),
		testClientIP, testUserAgent,
	)
	assert.NoError(t, err)

	status, err := svc.GetStatus(context.Background(), "RPT-2024-001")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.Status)
	assert.Equal(t, 1, status.Stage)

	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)
	assert.NoError(t, err)

	status, err = svc.GetStatus(context.Background(), "RPT-2024-001")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.Status)
	assert.Equal(t, 2, status.Stage)
	assert.Equal(t, "second@example.com", status.ApproverEmail)
}

func TestGetStatus_UnknownReport(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	_, err := svc.GetStatus(context.Background(), "RPT-MISSING")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestGetAuditTrail_RecordsEveryAction(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	submitted, err := svc.SubmitReport(
		context.Background(),
		newSubmitRequest("first@example.com", "second@example.com"),
		testClientIP, testUserAgent,
	)
	assert.NoError(t, err)

	_, err = svc.Decide(context.Background(), submitted.Token, models.ActionApprove, "", testClientIP, testUserAgent)
	assert.NoError(t, err)

	entries, err := svc.GetAuditTrail(context.Background(), "RPT-2024-001", 50, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, models.ActionSubmit, entries[0].Action)
	assert.Equal(t, models.ActionApprove, entries[1].Action)
}

func TestGetStatistics(t *testing.T) {
	statsDAO := &mocks.MockStatsDAO{}
	statsDAO.On("CollectStats", mock.Anything).Return(&models.SystemStats{
		TotalRecords:     5,
		PendingApprovals: 2,
		ApprovedRecords:  3,
	}, nil)

	svc := newTestService(newTestConfig(), newMemoryStore(), nil)
	svc.statsDAO = statsDAO

	stats, err := svc.GetStatistics(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, stats.TotalRecords)
	assert.Equal(t, 2, stats.PendingApprovals)
}

func TestSubmitReport_StoreErrorSurfaces(t *testing.T) {
	reportDAO := &mocks.MockReportDAO{}
	reportDAO.On("Exists", mock.Anything, "RPT-2024-001").Return(false, errors.New("connection reset"))

	svc := newTestService(newTestConfig(), newMemoryStore(), nil)
	svc.reportDAO = reportDAO

	_, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	reportDAO.AssertExpectations(t)
}

func TestDecide_StoreErrorSurfaces(t *testing.T) {
	recordDAO := &mocks.MockApprovalRecordDAO{}
	recordDAO.On("GetByToken", mock.Anything, "token-1").Return(nil, errors.New("connection reset"))

	svc := newTestService(newTestConfig(), newMemoryStore(), nil)
	svc.recordDAO = recordDAO

	_, err := svc.Decide(context.Background(), "token-1", models.ActionApprove, "", testClientIP, testUserAgent)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	recordDAO.AssertExpectations(t)
}

func TestGetAuditTrail_StoreErrorSurfaces(t *testing.T) {
	reportDAO := &mocks.MockReportDAO{}
	reportDAO.On("Exists", mock.Anything, "RPT-2024-001").Return(true, nil)
	auditDAO := &mocks.MockAuditLogDAO{}
	auditDAO.On("ListByReportID", mock.Anything, "RPT-2024-001", 50, 0).Return(nil, errors.New("connection reset"))

	svc := newTestService(newTestConfig(), newMemoryStore(), nil)
	svc.reportDAO = reportDAO
	svc.auditDAO = auditDAO

	_, err := svc.GetAuditTrail(context.Background(), "RPT-2024-001", 50, 0)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	auditDAO.AssertExpectations(t)
}

func TestSubmitReport_TokenCollisionRetries(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(newTestConfig(), store, nil)

	// occupy a token, then force the issuer to hand it out first
	taken := "11111111-1111-1111-1111-111111111111"
	err := store.createRecord(&models.ApprovalRecord{
		RecordID:      "RECORD-taken",
		ReportID:      "RPT-OTHER",
		Stage:         1,
		ApproverEmail: "other@example.com",
		Token:         taken,
		Status:        models.StatusApproved,
	})
	assert.NoError(t, err)

	svc.tokens = &sequencedTokens{tokens: []string{taken, "22222222-2222-2222-2222-222222222222"}}

	resp, err := svc.SubmitReport(context.Background(), newSubmitRequest(), testClientIP, testUserAgent)
	assert.NoError(t, err)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", resp.Token)
}

// sequencedTokens hands out a fixed token sequence
type sequencedTokens struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

func (s *sequencedTokens) Issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.tokens) {
		return fmt.Sprintf("overflow-token-%d", s.next)
	}
	token := s.tokens[s.next]
	s.next++
	return token
}
