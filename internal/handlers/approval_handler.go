package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reportflow/approval-management-api/internal/models"
	"github.com/reportflow/approval-management-api/internal/service"
	"github.com/reportflow/approval-management-api/internal/utils"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// ApprovalHandler handles approval-related HTTP requests
type ApprovalHandler struct {
	approvalService *service.ApprovalService
}

// NewApprovalHandler creates a new approval handler instance
func NewApprovalHandler(approvalService *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
	}
}

// SubmitReport handles POST /approval/reports
func (h *ApprovalHandler) SubmitReport(c *gin.Context) {
	var request models.SubmitReportRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	response, err := h.approvalService.SubmitReport(
		c.Request.Context(),
		&request,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, response)
}

// GetRecord handles GET /approval/records/:token.
// The confirmation page loads this before the approver commits a decision.
func (h *ApprovalHandler) GetRecord(c *gin.Context) {
	token := c.Param("token")

	response, err := h.approvalService.GetRecordByToken(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, response)
}

// Decide handles POST /approval/decisions/:token
func (h *ApprovalHandler) Decide(c *gin.Context) {
	token := c.Param("token")

	var request models.DecisionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	response, err := h.approvalService.Decide(
		c.Request.Context(),
		token,
		request.Action,
		request.Reason,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, response)
}

// DecideViaLink handles GET /approval/decide?token=...&action=...
// This is the path taken when an approver clicks a mailed link directly.
func (h *ApprovalHandler) DecideViaLink(c *gin.Context) {
	token := c.Query("token")
	action := c.Query("action")
	reason := c.Query("reason")

	if token == "" || action == "" {
		utils.SendBadRequestError(c, "Missing token or action", "")
		return
	}

	response, err := h.approvalService.Decide(
		c.Request.Context(),
		token,
		action,
		reason,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, response)
}

// GetStatus handles GET /approval/reports/:reportId/status
func (h *ApprovalHandler) GetStatus(c *gin.Context) {
	reportID := c.Param("reportId")

	response, err := h.approvalService.GetStatus(c.Request.Context(), reportID)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, response)
}

// GetAuditTrail handles GET /approval/reports/:reportId/audit
func (h *ApprovalHandler) GetAuditTrail(c *gin.Context) {
	reportID := c.Param("reportId")
	limit, offset := parsePagination(c)

	entries, err := h.approvalService.GetAuditTrail(c.Request.Context(), reportID, limit, offset)
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"reportId": reportID,
		"entries":  entries,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetStatistics handles GET /approval/statistics
func (h *ApprovalHandler) GetStatistics(c *gin.Context) {
	stats, err := h.approvalService.GetStatistics(c.Request.Context())
	if err != nil {
		utils.SendServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, stats)
}

// parsePagination reads limit/offset query parameters with sane bounds
func parsePagination(c *gin.Context) (int, int) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
