package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

// respondOK wraps a successful payload in the {success, data} envelope
// internal/lib/errors.go's FFIResponse uses on the teacher's FFI boundary.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError maps a gatewayerr.Kind to an HTTP status and renders the
// {success: false, error, details?} envelope spec §7 requires. Any error
// that is not a *gatewayerr.Error is treated as Internal.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var details []string
	if gerr, ok := err.(*gatewayerr.Error); ok {
		status = statusFor(gerr.Kind)
		details = gerr.Details
	}

	body := gin.H{"success": false, "error": err.Error()}
	if len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

func statusFor(kind gatewayerr.Kind) int {
	switch kind {
	case gatewayerr.InputValidation:
		return http.StatusBadRequest
	case gatewayerr.NotFound:
		return http.StatusNotFound
	case gatewayerr.Conflict:
		return http.StatusConflict
	case gatewayerr.Unauthorized:
		return http.StatusUnauthorized
	case gatewayerr.Forbidden:
		return http.StatusForbidden
	case gatewayerr.ExternalUnavailable:
		return http.StatusBadGateway
	case gatewayerr.Insufficient:
		return http.StatusUnprocessableEntity
	case gatewayerr.Integrity:
		return http.StatusConflict
	case gatewayerr.Transient:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
