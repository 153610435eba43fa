package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reportflow/approval-management-api/internal/models"
	"github.com/reportflow/approval-management-api/internal/service"
)

// SendSuccessResponse sends a successful JSON response
func SendSuccessResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// SendErrorResponse sends an error JSON response
func SendErrorResponse(c *gin.Context, statusCode int, errCode, message, details string) {
	c.JSON(statusCode, models.ErrorResponse{
		Code:    errCode,
		Message: message,
		Details: details,
	})
}

// SendCreatedResponse sends a 201 Created response
func SendCreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendOKResponse sends a 200 OK response
func SendOKResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendBadRequestError sends a 400 Bad Request error
func SendBadRequestError(c *gin.Context, message, details string) {
	SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeBadRequest, message, details)
}

// SendValidationError sends a 400 validation error
func SendValidationError(c *gin.Context, details string) {
	SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeValidationError, "Validation failed", details)
}

// SendForbiddenError sends a 403 Forbidden error
func SendForbiddenError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusForbidden, models.ErrCodeAccessDenied, message, "")
}

// SendNotFoundError sends a 404 Not Found error
func SendNotFoundError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusNotFound, models.ErrCodeNotFound, message, "")
}

// SendConflictError sends a 409 Conflict error
func SendConflictError(c *gin.Context, errCode, message string) {
	SendErrorResponse(c, http.StatusConflict, errCode, message, "")
}

// SendGoneError sends a 410 Gone error
func SendGoneError(c *gin.Context, errCode, message string) {
	SendErrorResponse(c, http.StatusGone, errCode, message, "")
}

// SendInternalServerError sends a 500 Internal Server Error
func SendInternalServerError(c *gin.Context, message, details string) {
	SendErrorResponse(c, http.StatusInternalServerError, models.ErrCodeInternalError, message, details)
}

// SendServiceError maps an approval service error to its HTTP response
func SendServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		SendForbiddenError(c, "Request origin is not permitted")
	case errors.Is(err, service.ErrInvalidToken):
		SendErrorResponse(c, http.StatusNotFound, models.ErrCodeInvalidToken, "Approval token is invalid", "")
	case errors.Is(err, service.ErrAlreadyProcessed):
		SendConflictError(c, models.ErrCodeAlreadyProcessed, "Approval record has already been processed")
	case errors.Is(err, service.ErrTokenExpired):
		SendGoneError(c, models.ErrCodeTokenExpired, "Approval token has expired")
	case errors.Is(err, service.ErrInvalidAction):
		SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeValidationError, "Decision action is invalid", err.Error())
	case errors.Is(err, service.ErrInvalidReason):
		SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeInvalidReason, "Rejection reason does not meet requirements", err.Error())
	case errors.Is(err, service.ErrReportNotFound):
		SendNotFoundError(c, "Report not found")
	case errors.Is(err, service.ErrReportExists):
		SendConflictError(c, models.ErrCodeConflict, "Report has already been submitted")
	default:
		SendInternalServerError(c, "Internal server error", err.Error())
	}
}
