package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkgate/internal/domain"
)

// Error codes returned in ErrorResponse.Error
const (
	CodeURLNotFound       = "URL_NOT_FOUND"
	CodeAccessRestricted  = "ACCESS_RESTRICTED"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeShortCodeTaken    = "SHORT_CODE_TAKEN"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

var denyMessages = map[domain.DenyReason]string{
	domain.ReasonNotFound:          "The requested link does not exist",
	domain.ReasonExpired:           "This link has expired",
	domain.ReasonDeactivated:       "This link is no longer active",
	domain.ReasonUnsafeTarget:      "The requested link does not exist",
	domain.ReasonQuotaExceeded:     "This link has reached its click limit",
	domain.ReasonGeoBlocked:        "This link is not available in your region",
	domain.ReasonDeviceBlocked:     "This link is not available on your device",
	domain.ReasonPasswordRequired:  "This link is password protected",
	domain.ReasonPasswordIncorrect: "The password is incorrect",
}

// denialResponse maps a deny reason to its status code and body
func denialResponse(reason domain.DenyReason) (int, domain.ErrorResponse) {
	resp := domain.ErrorResponse{
		Reason:  string(reason),
		Message: denyMessages[reason],
	}

	switch {
	case reason.IsPasswordChallenge():
		resp.Error = string(reason)
		return http.StatusUnauthorized, resp
	case reason.IsUnavailable():
		resp.Error = CodeURLNotFound
		return http.StatusNotFound, resp
	default:
		resp.Error = CodeAccessRestricted
		return http.StatusForbidden, resp
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, domain.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, domain.DataResponse{Success: true, Data: data})
}
