package gatewayerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorError(t *testing.T) {
	withCause := New(ExternalUnavailable, "fetch price", errors.New("timeout"))
	assert.Equal(t, "external_unavailable: fetch price (timeout)", withCause.Error())

	withoutCause := New(InputValidation, "bad username", nil)
	assert.Equal(t, "input_validation: bad username", withoutCause.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := New(Internal, "wrapped", cause)
	assert.Same(t, cause, errors.Unwrap(e))
}

func TestNewf(t *testing.T) {
	e := Newf(Conflict, nil, "channel %s already %s", "abc123", "claimed")
	assert.Equal(t, "channel abc123 already claimed", e.Message)
	assert.Equal(t, Conflict, e.Kind)
}

func TestWithDetails(t *testing.T) {
	e := New(InputValidation, "invalid request", nil).WithDetails("username too short", "public key malformed")
	assert.Equal(t, []string{"username too short", "public key malformed"}, e.Details)
}

func TestIs(t *testing.T) {
	e := New(NotFound, "channel missing", nil)
	assert.True(t, Is(e, NotFound))
	assert.False(t, Is(e, Conflict))
	assert.False(t, Is(errors.New("plain error"), NotFound))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Forbidden, KindOf(New(Forbidden, "nope", nil)))
	assert.Equal(t, Internal, KindOf(errors.New("plain error")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{ExternalUnavailable, true},
		{Transient, true},
		{InputValidation, false},
		{Integrity, false},
		{NotFound, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(New(tt.kind, "msg", nil)))
		})
	}
	assert.False(t, Retryable(errors.New("plain error")))
}
