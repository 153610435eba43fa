package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reportflow/approval-management-api/internal/config"
	"github.com/reportflow/approval-management-api/internal/database"
	"github.com/reportflow/approval-management-api/internal/handlers"
	"github.com/reportflow/approval-management-api/internal/service"
)

// SetupRouter configures all API routes
func SetupRouter(
	approvalService *service.ApprovalService,
	db *database.DB,
	cfg *config.Config,
) (*gin.Engine, error) {
	router := gin.Default()

	// gin trusts every proxy out of the box, which would let any caller forge
	// its client IP through X-Forwarded-For and slip past the access guard.
	// Only proxies named in config may override the peer address.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	approvalHandler := handlers.NewApprovalHandler(approvalService)

	approval := router.Group("/approval")
	{
		approval.POST("/reports", approvalHandler.SubmitReport)
		approval.GET("/reports/:reportId/status", approvalHandler.GetStatus)
		approval.GET("/reports/:reportId/audit", approvalHandler.GetAuditTrail)

		approval.GET("/records/:token", approvalHandler.GetRecord)
		approval.POST("/decisions/:token", approvalHandler.Decide)
		approval.GET("/decide", approvalHandler.DecideViaLink)

		approval.GET("/statistics", approvalHandler.GetStatistics)

		approval.GET("/system", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":              "approval-management-api",
				"time":                 time.Now().UTC().Format(time.RFC3339),
				"tokenTtlEnabled":      cfg.Approval.IsTTLEnabled(),
				"tokenTtlSeconds":      int(cfg.Approval.TokenTTL.Seconds()),
				"notificationEnabled":  cfg.Notification.Enabled,
				"submissionGuarded":    cfg.Approval.GuardSubmissions,
				"rejectReasonMinChars": cfg.Approval.RejectReasonMinLength,
			})
		})
	}

	return router, nil
}
