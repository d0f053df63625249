package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorCode is the machine-readable reason carried in every sieve error
// response. Clients branch on it rather than on the message text.
type ErrorCode string

const (
	CodeInvalidJSON      ErrorCode = "invalid_json"
	CodeValidation       ErrorCode = "validation_failed"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeStoreError       ErrorCode = "store_error"
	CodeTriageError      ErrorCode = "triage_error"
	CodeRetrainFailed    ErrorCode = "retrain_failed"
	CodeSummaryDisabled  ErrorCode = "summary_disabled"
	CodeBadUpstream      ErrorCode = "bad_upstream_response"
	CodeUpstreamFailed   ErrorCode = "upstream_failed"
	CodeRateLimited      ErrorCode = "rate_limited"
)

// RequestIDHeader is echoed on every response. A caller-supplied value is
// kept so a scoring batch can be traced across services.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// APIError describes one failed API call. Details holds partial state the
// caller needs to reconcile, such as triage actions already recorded
// before a batch failed.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code ErrorCode, err error) {
	RespondErrorDetails(c, status, code, err, nil)
}

func RespondErrorDetails(c *gin.Context, status int, code ErrorCode, err error, details any) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Code:      code,
			Message:   msg,
			RequestID: c.GetString(requestIDKey),
			Details:   details,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// requestID tags the request with the caller's X-Request-ID or a fresh
// UUID and echoes it back.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
