package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"advisor-backend/internal/shared/telemetry"
)

// Machine-readable error codes returned in error.code.
const (
	CodeValidation      = "validation_error"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeAlreadyResolved = "already_resolved"
	CodePayloadTooLarge = "payload_too_large"
	CodeUnsupportedDoc  = "unsupported_document"
	CodeEmptyDocument   = "empty_document"
	CodeRateLimited     = "rate_limited"
	CodeCatalog         = "catalog_error"
	CodeInternal        = "internal_error"
)

// ErrorBody is the error object every failing endpoint returns.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody under the "error" key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts with an ErrorResponse.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, code, message)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

func logError(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
	}
	for key, field := range map[string]string{
		"requestId":        "request_id",
		"userId":           "user_id",
		"recommendationId": "recommendation_id",
	} {
		if v := c.GetString(key); v != "" {
			fields[field] = v
		}
	}

	log := telemetry.Warn
	if status >= http.StatusInternalServerError {
		log = telemetry.Error
	}
	log("http.error", fields)
}
