package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reportflow/approval-management-api/internal/config"
	"github.com/reportflow/approval-management-api/internal/dao"
	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
)

// stubRunner executes the transaction body directly against the backing
// store; tests exercise atomicity through the store's own locking
type stubRunner struct{}

func (stubRunner) WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error {
	return fn(nil)
}

// memoryStore is an in-memory implementation of the report, record and audit
// stores. Its conditional transition holds the same pending-only guard the
// SQL layer enforces, which lets tests race concurrent decisions for real.
type memoryStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	records map[string]*models.ApprovalRecord
	audits  []models.AuditLogEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		reports: make(map[string]*models.Report),
		records: make(map[string]*models.ApprovalRecord),
	}
}

func (s *memoryStore) CreateWithTx(ctx context.Context, tx *database.Transaction, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *report
	s.reports[report.ReportID] = &copied
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, reportID string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[reportID]
	if !ok {
		return nil, nil
	}
	copied := *report
	return &copied, nil
}

func (s *memoryStore) Exists(ctx context.Context, reportID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reports[reportID]
	return ok, nil
}

func (s *memoryStore) createRecord(record *models.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.Token]; exists {
		return dao.ErrDuplicateToken
	}
	copied := *record
	s.records[record.Token] = &copied
	return nil
}

func (s *memoryStore) CreateRecordWithTx(ctx context.Context, tx *database.Transaction, record *models.ApprovalRecord) error {
	return s.createRecord(record)
}

func (s *memoryStore) GetByToken(ctx context.Context, token string) (*models.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[token]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *memoryStore) GetLatestByReportID(ctx context.Context, reportID string) (*models.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.ApprovalRecord
	for _, record := range s.records {
		if record.ReportID != reportID {
			continue
		}
		if latest == nil || record.Stage > latest.Stage {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *memoryStore) GetAllByReportID(ctx context.Context, reportID string) ([]models.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.ApprovalRecord
	for _, record := range s.records {
		if record.ReportID == reportID {
			records = append(records, *record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Stage < records[j].Stage })
	return records, nil
}

func (s *memoryStore) transition(token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[token]
	if !ok || record.Status != models.StatusPending {
		return 0
	}
	record.Status = newStatus
	record.ProcessedAt = &processedAt
	record.ProcessorIP = &processorIP
	record.ProcessorUserAgent = userAgent
	record.Reason = reason
	return 1
}

func (s *memoryStore) Transition(ctx context.Context, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error) {
	return s.transition(token, newStatus, processedAt, processorIP, userAgent, reason), nil
}

func (s *memoryStore) TransitionWithTx(ctx context.Context, tx *database.Transaction, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error) {
	return s.transition(token, newStatus, processedAt, processorIP, userAgent, reason), nil
}

func (s *memoryStore) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	copied.ID = int64(len(s.audits) + 1)
	s.audits = append(s.audits, copied)
	return nil
}

func (s *memoryStore) AppendWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLogEntry) error {
	return s.Append(ctx, entry)
}

func (s *memoryStore) ListByReportID(ctx context.Context, reportID string, limit, offset int) ([]models.AuditLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.AuditLogEntry
	for _, entry := range s.audits {
		if entry.ReportID == reportID {
			entries = append(entries, entry)
		}
	}
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// recordStoreAdapter lets the memoryStore satisfy ApprovalRecordStore despite
// the report-create method sharing the CreateWithTx name
type recordStoreAdapter struct {
	*memoryStore
}

func (a recordStoreAdapter) CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ApprovalRecord) error {
	return a.memoryStore.CreateRecordWithTx(ctx, tx, record)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Hostname:      "localhost",
			Port:          8080,
			PublicBaseURL: "http://localhost:8080",
		},
		Approval: config.ApprovalConfig{
			GuardSubmissions:      true,
			RejectReasonMinLength: 10,
		},
		Notification: config.NotificationConfig{
			Timeout: time.Second,
		},
	}
}

// newTestService wires an ApprovalService around a shared in-memory store
func newTestService(cfg *config.Config, store *memoryStore, dispatcher NotificationDispatcher) *ApprovalService {
	logger := newTestLogger()
	guard, err := NewAccessGuard(nil, logger)
	if err != nil {
		panic(err)
	}

	return &ApprovalService{
		reportDAO:  store,
		recordDAO:  recordStoreAdapter{store},
		auditDAO:   store,
		tokens:     NewTokenAuthority(),
		guard:      guard,
		dispatcher: dispatcher,
		db:         stubRunner{},
		cfg:        cfg,
		logger:     logger,
	}
}
