package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reportflow/approval-management-api/internal/config"
	"github.com/reportflow/approval-management-api/internal/dao"
	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/models"
	"github.com/reportflow/approval-management-api/pkg/utils"
)

// tokenCreateRetries bounds how often a colliding token insert is retried
// with a freshly issued token
const tokenCreateRetries = 3

// ReportStore persists submitted reports
type ReportStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, report *models.Report) error
	GetByID(ctx context.Context, reportID string) (*models.Report, error)
	Exists(ctx context.Context, reportID string) (bool, error)
}

// ApprovalRecordStore persists per-stage approval records
type ApprovalRecordStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, record *models.ApprovalRecord) error
	GetByToken(ctx context.Context, token string) (*models.ApprovalRecord, error)
	GetLatestByReportID(ctx context.Context, reportID string) (*models.ApprovalRecord, error)
	GetAllByReportID(ctx context.Context, reportID string) ([]models.ApprovalRecord, error)
	Transition(ctx context.Context, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error)
	TransitionWithTx(ctx context.Context, tx *database.Transaction, token, newStatus string, processedAt int64, processorIP string, userAgent, reason *string) (int64, error)
}

// AuditLogStore persists the append-only audit trail
type AuditLogStore interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	AppendWithTx(ctx context.Context, tx *database.Transaction, entry *models.AuditLogEntry) error
	ListByReportID(ctx context.Context, reportID string, limit, offset int) ([]models.AuditLogEntry, error)
}

// StatisticsStore aggregates counters over the approval tables
type StatisticsStore interface {
	CollectStats(ctx context.Context) (*models.SystemStats, error)
}

// NotificationDispatcher delivers approver notifications. Implementations
// must honor the context deadline; a dispatch failure never rolls back the
// state transition that preceded it.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, note *models.ApproverNotification) error
}

// DocumentRenderer writes a reviewable artifact for a submitted report and
// returns its location
type DocumentRenderer interface {
	Render(report *models.Report) (string, error)
}

// tokenIssuer issues approval tokens
type tokenIssuer interface {
	Issue() string
}

// transactionRunner executes a function inside a database transaction
type transactionRunner interface {
	WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error
}

// ApprovalService orchestrates the multi-stage report approval workflow
type ApprovalService struct {
	reportDAO  ReportStore
	recordDAO  ApprovalRecordStore
	auditDAO   AuditLogStore
	statsDAO   StatisticsStore
	tokens     tokenIssuer
	guard      *AccessGuard
	dispatcher NotificationDispatcher
	renderer   DocumentRenderer
	db         transactionRunner
	cfg        *config.Config
	logger     *logrus.Logger
}

// NewApprovalService creates a new approval service instance.
// dispatcher and renderer may be nil; the workflow then runs without
// notifications or rendered artifacts.
func NewApprovalService(
	reportDAO ReportStore,
	recordDAO ApprovalRecordStore,
	auditDAO AuditLogStore,
	statsDAO StatisticsStore,
	tokens *TokenAuthority,
	guard *AccessGuard,
	dispatcher NotificationDispatcher,
	renderer DocumentRenderer,
	db *database.DB,
	cfg *config.Config,
	logger *logrus.Logger,
) *ApprovalService {
	return &ApprovalService{
		reportDAO:  reportDAO,
		recordDAO:  recordDAO,
		auditDAO:   auditDAO,
		statsDAO:   statsDAO,
		tokens:     tokens,
		guard:      guard,
		dispatcher: dispatcher,
		renderer:   renderer,
		db:         db,
		cfg:        cfg,
		logger:     logger,
	}
}

// SubmitReport stores a new report, creates its stage-1 pending record and
// notifies the first approver. The report, record and submit audit entry are
// committed atomically; notification happens after commit and its failure
// degrades the response instead of failing the submission.
func (s *ApprovalService) SubmitReport(ctx context.Context, req *models.SubmitReportRequest, clientIP, userAgent string) (*models.SubmitReportResponse, error) {
	if s.cfg.Approval.GuardSubmissions && !s.guard.IsPermitted(clientIP) {
		s.logger.WithFields(logrus.Fields{
			"client_ip": clientIP,
			"report_id": req.ReportID,
		}).Warn("Report submission denied by access guard")
		return nil, ErrAccessDenied
	}

	if err := utils.ValidateReportID(req.ReportID); err != nil {
		return nil, err
	}
	for _, approver := range req.Approvers {
		if err := utils.ValidateEmail(approver); err != nil {
			return nil, err
		}
	}

	exists, err := s.reportDAO.Exists(ctx, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("failed to check report existence: %w", err)
	}
	if exists {
		return nil, ErrReportExists
	}

	now := utils.GetCurrentTimeMillis()

	report := &models.Report{
		ReportID:  req.ReportID,
		Title:     req.Title,
		Content:   req.Content,
		Operator:  req.Operator,
		ClientIP:  clientIP,
		CreatedAt: now,
	}
	if err := report.SetApprovers(req.Approvers); err != nil {
		return nil, err
	}

	record := &models.ApprovalRecord{
		RecordID:      utils.GenerateRecordID(),
		ReportID:      req.ReportID,
		Stage:         1,
		ApproverEmail: req.Approvers[0],
		Token:         s.tokens.Issue(),
		Status:        models.StatusPending,
		CreatedAt:     now,
	}

	details := fmt.Sprintf("report submitted by %s with %d approval stage(s)", req.Operator, len(req.Approvers))
	audit := &models.AuditLogEntry{
		ReportID:  req.ReportID,
		Action:    models.ActionSubmit,
		IPAddress: clientIP,
		UserAgent: strPtrOrNil(userAgent),
		Timestamp: now,
		Details:   &details,
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.reportDAO.CreateWithTx(ctx, tx, report); err != nil {
			return err
		}
		if err := s.createRecordWithRetry(ctx, tx, record); err != nil {
			return err
		}
		return s.auditDAO.AppendWithTx(ctx, tx, audit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit report: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": req.ReportID,
		"record_id": record.RecordID,
		"approver":  record.ApproverEmail,
		"stages":    len(req.Approvers),
	}).Info("Report submitted for approval")

	s.renderArtifact(report)
	notificationSent := s.notifyApprover(report, record, len(req.Approvers))

	return &models.SubmitReportResponse{
		ReportID:         req.ReportID,
		RecordID:         record.RecordID,
		Stage:            1,
		Token:            record.Token,
		TotalStages:      len(req.Approvers),
		NotificationSent: notificationSent,
		Message:          "report submitted for approval",
	}, nil
}

// Decide applies an approve or reject decision to the pending record behind
// the token. The status transition, its audit entry and any next-stage record
// are committed atomically; of two concurrent decisions on the same token
// exactly one wins and the other observes ErrAlreadyProcessed.
func (s *ApprovalService) Decide(ctx context.Context, token, action, reason, clientIP, userAgent string) (*models.DecisionResponse, error) {
	if !s.guard.IsPermitted(clientIP) {
		s.logger.WithField("client_ip", clientIP).Warn("Decision denied by access guard")
		return nil, ErrAccessDenied
	}

	if action != models.ActionApprove && action != models.ActionReject {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	record, err := s.recordDAO.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval record: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidToken
	}
	if !record.IsPending() {
		return nil, ErrAlreadyProcessed
	}

	now := utils.GetCurrentTimeMillis()

	if expired, err := s.expireIfStale(ctx, record, now, clientIP, userAgent); err != nil {
		return nil, err
	} else if expired {
		return nil, ErrTokenExpired
	}

	var reasonPtr *string
	if action == models.ActionReject {
		if err := utils.ValidateRejectReason(reason, s.cfg.Approval.RejectReasonMinLength); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReason, err)
		}
		reasonPtr = &reason
	}

	report, err := s.reportDAO.GetByID(ctx, record.ReportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	approvers, err := report.ApproverList()
	if err != nil {
		return nil, err
	}
	totalStages := len(approvers)

	newStatus := models.StatusApproved
	outcome := models.OutcomeFinalApproved
	if action == models.ActionReject {
		newStatus = models.StatusRejected
		outcome = models.OutcomeRejected
	}

	var nextRecord *models.ApprovalRecord
	if action == models.ActionApprove && record.Stage < totalStages {
		outcome = models.OutcomeAdvanced
		nextRecord = &models.ApprovalRecord{
			RecordID:      utils.GenerateRecordID(),
			ReportID:      record.ReportID,
			Stage:         record.Stage + 1,
			ApproverEmail: approvers[record.Stage],
			Token:         s.tokens.Issue(),
			Status:        models.StatusPending,
			CreatedAt:     now,
		}
	}

	userAgentPtr := strPtrOrNil(userAgent)
	details := fmt.Sprintf("stage %d of %d %s by %s", record.Stage, totalStages, newStatus, record.ApproverEmail)
	if reasonPtr != nil {
		details = fmt.Sprintf("%s, reason: %s", details, *reasonPtr)
	}

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		rows, err := s.recordDAO.TransitionWithTx(ctx, tx, token, newStatus, now, clientIP, userAgentPtr, reasonPtr)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyProcessed
		}

		audit := &models.AuditLogEntry{
			ReportID:  record.ReportID,
			Action:    action,
			IPAddress: clientIP,
			UserAgent: userAgentPtr,
			Timestamp: now,
			Details:   &details,
		}
		if err := s.auditDAO.AppendWithTx(ctx, tx, audit); err != nil {
			return err
		}

		if nextRecord != nil {
			return s.createRecordWithRetry(ctx, tx, nextRecord)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to apply decision: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": record.ReportID,
		"stage":     record.Stage,
		"action":    action,
		"outcome":   outcome,
	}).Info("Decision applied")

	response := &models.DecisionResponse{
		ReportID: record.ReportID,
		Stage:    record.Stage,
		Outcome:  outcome,
	}

	if nextRecord != nil {
		nextStage := nextRecord.Stage
		response.NextStage = &nextStage
		sent := s.notifyApprover(report, nextRecord, totalStages)
		response.NotificationSent = &sent
	}

	return response, nil
}

// expireIfStale moves a pending record past its TTL into the expired state.
// The transition is conditional; losing the race to another request means the
// record was decided concurrently and ErrAlreadyProcessed is returned.
func (s *ApprovalService) expireIfStale(ctx context.Context, record *models.ApprovalRecord, now int64, clientIP, userAgent string) (bool, error) {
	if !s.cfg.Approval.IsTTLEnabled() {
		return false, nil
	}
	if now-record.CreatedAt <= s.cfg.Approval.TokenTTL.Milliseconds() {
		return false, nil
	}

	rows, err := s.recordDAO.Transition(ctx, record.Token, models.StatusExpired, now, clientIP, strPtrOrNil(userAgent), nil)
	if err != nil {
		return false, fmt.Errorf("failed to expire approval record: %w", err)
	}
	if rows == 0 {
		return false, ErrAlreadyProcessed
	}

	details := fmt.Sprintf("stage %d token expired", record.Stage)
	audit := &models.AuditLogEntry{
		ReportID:  record.ReportID,
		Action:    models.ActionExpire,
		IPAddress: clientIP,
		UserAgent: strPtrOrNil(userAgent),
		Timestamp: now,
		Details:   &details,
	}
	if err := s.auditDAO.Append(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit token expiry")
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": record.ReportID,
		"stage":     record.Stage,
	}).Info("Approval token expired")

	return true, nil
}

// GetRecordByToken exposes the pending record behind a token to the approval
// confirmation flow
func (s *ApprovalService) GetRecordByToken(ctx context.Context, token, clientIP string) (*models.RecordResponse, error) {
	if !s.guard.IsPermitted(clientIP) {
		return nil, ErrAccessDenied
	}

	record, err := s.recordDAO.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval record: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidToken
	}

	report, err := s.reportDAO.GetByID(ctx, record.ReportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	approvers, err := report.ApproverList()
	if err != nil {
		return nil, err
	}

	return &models.RecordResponse{
		ReportID:      record.ReportID,
		Title:         report.Title,
		Operator:      report.Operator,
		Stage:         record.Stage,
		TotalStages:   len(approvers),
		ApproverEmail: record.ApproverEmail,
		Status:        record.Status,
		CreatedAt:     record.CreatedAt,
		Reason:        record.Reason,
	}, nil
}

// GetStatus returns the approval status of a report, derived from its
// highest-stage record
func (s *ApprovalService) GetStatus(ctx context.Context, reportID string) (*models.StatusResponse, error) {
	report, err := s.reportDAO.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	record, err := s.recordDAO.GetLatestByReportID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("report %s has no approval records", reportID)
	}

	approvers, err := report.ApproverList()
	if err != nil {
		return nil, err
	}

	return &models.StatusResponse{
		ReportID:      reportID,
		Title:         report.Title,
		Operator:      report.Operator,
		Status:        record.Status,
		Stage:         record.Stage,
		TotalStages:   len(approvers),
		ApproverEmail: record.ApproverEmail,
		CreatedAt:     report.CreatedAt,
		ProcessedAt:   record.ProcessedAt,
		Reason:        record.Reason,
	}, nil
}

// GetAuditTrail returns the audit trail of a report in insertion order
func (s *ApprovalService) GetAuditTrail(ctx context.Context, reportID string, limit, offset int) ([]models.AuditLogEntry, error) {
	exists, err := s.reportDAO.Exists(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to check report existence: %w", err)
	}
	if !exists {
		return nil, ErrReportNotFound
	}

	entries, err := s.auditDAO.ListByReportID(ctx, reportID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	return entries, nil
}

// GetStatistics returns system-wide approval statistics
func (s *ApprovalService) GetStatistics(ctx context.Context) (*models.SystemStats, error) {
	stats, err := s.statsDAO.CollectStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect statistics: %w", err)
	}
	return stats, nil
}

// createRecordWithRetry inserts a record, reissuing the token on the rare
// unique key collision
func (s *ApprovalService) createRecordWithRetry(ctx context.Context, tx *database.Transaction, record *models.ApprovalRecord) error {
	var err error
	for attempt := 0; attempt < tokenCreateRetries; attempt++ {
		err = s.recordDAO.CreateWithTx(ctx, tx, record)
		if err == nil {
			return nil
		}
		if !errors.Is(err, dao.ErrDuplicateToken) {
			return err
		}
		record.Token = s.tokens.Issue()
	}
	return err
}

// notifyApprover renders the approval links for a pending record and hands
// them to the dispatcher. Failures are logged and reported as a degraded
// result; the workflow state is already committed.
func (s *ApprovalService) notifyApprover(report *models.Report, record *models.ApprovalRecord, totalStages int) bool {
	if s.dispatcher == nil {
		return false
	}

	base := s.cfg.Server.PublicBaseURL
	note := &models.ApproverNotification{
		Recipient:   record.ApproverEmail,
		ReportID:    report.ReportID,
		ReportTitle: report.Title,
		Operator:    report.Operator,
		Stage:       record.Stage,
		TotalStages: totalStages,
		DetailURL:   fmt.Sprintf("%s/approval/records/%s", base, record.Token),
		ApproveURL:  fmt.Sprintf("%s/approval/decide?token=%s&action=approve", base, record.Token),
		RejectURL:   fmt.Sprintf("%s/approval/decide?token=%s&action=reject", base, record.Token),
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Notification.Timeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(ctx, note); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"report_id": report.ReportID,
			"stage":     record.Stage,
			"approver":  record.ApproverEmail,
		}).Error("Failed to dispatch approver notification")
		return false
	}

	return true
}

// renderArtifact writes the reviewable report document. Best effort only.
func (s *ApprovalService) renderArtifact(report *models.Report) {
	if s.renderer == nil {
		return
	}

	path, err := s.renderer.Render(report)
	if err != nil {
		s.logger.WithError(err).WithField("report_id", report.ReportID).Error("Failed to render report artifact")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": report.ReportID,
		"artifact":  path,
	}).Debug("Report artifact rendered")
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
