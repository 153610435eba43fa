package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/reportflow/approval-management-api/internal/config"
	"github.com/reportflow/approval-management-api/internal/service"
	"github.com/reportflow/approval-management-api/internal/service/mocks"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	guard, err := service.NewAccessGuard(nil, logger)
	assert.NoError(t, err)

	recordDAO := &mocks.MockApprovalRecordDAO{}
	recordDAO.On("GetByToken", mock.Anything, mock.Anything).Return(nil, nil)

	cfg := &config.Config{
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

	svc := service.NewApprovalService(
		&mocks.MockReportDAO{},
		recordDAO,
		&mocks.MockAuditLogDAO{},
		nil,
		service.NewTokenAuthority(),
		guard,
		nil,
		nil,
		nil,
		cfg,
		logger,
	)

	engine, err := SetupRouter(svc, nil, cfg)
	assert.NoError(t, err)
	return engine
}

func TestRouter_ForwardedForSpoofIsDenied(t *testing.T) {
	engine := newTestRouter(t)

	// a public caller presenting a forged private origin must not pass the
	// access guard: no proxy is trusted, so the peer address wins
	req := httptest.NewRequest(http.MethodPost, "/approval/decisions/some-token",
		strings.NewReader(`{"action":"approve"}`))
	req.RemoteAddr = "203.0.113.5:41234"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "192.168.1.10")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_PrivatePeerReachesService(t *testing.T) {
	engine := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/approval/decisions/some-token",
		strings.NewReader(`{"action":"approve"}`))
	req.RemoteAddr = "192.168.1.10:51234"
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	// past the guard; the mocked store has no such token
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_DecideLinkUnknownAction(t *testing.T) {
	engine := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/approval/decide?token=some-token&action=frobnicate", nil)
	req.RemoteAddr = "192.168.1.10:51234"

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
