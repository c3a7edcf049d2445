package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind gatewayerr.Kind
		want int
	}{
		{gatewayerr.InputValidation, http.StatusBadRequest},
		{gatewayerr.NotFound, http.StatusNotFound},
		{gatewayerr.Conflict, http.StatusConflict},
		{gatewayerr.Unauthorized, http.StatusUnauthorized},
		{gatewayerr.Forbidden, http.StatusForbidden},
		{gatewayerr.ExternalUnavailable, http.StatusBadGateway},
		{gatewayerr.Insufficient, http.StatusUnprocessableEntity},
		{gatewayerr.Integrity, http.StatusConflict},
		{gatewayerr.Transient, http.StatusGatewayTimeout},
		{gatewayerr.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestRespondErrorMapsKindAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := gatewayerr.New(gatewayerr.InputValidation, "bad request", nil).WithDetails("username too short")
	respondError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username too short")
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRespondErrorTreatsPlainErrorAsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("unexpected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRespondOK(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondOK(c, http.StatusOK, gin.H{"channel_id": "abc123"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), "abc123")
}
