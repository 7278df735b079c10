package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{418, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := FromStatusCode("instagram", tt.code, "status")
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	rate := fmt.Errorf("fetch following: %w", RateLimited("instagram", "slow down"))
	assert.True(t, IsRateLimited(rate))
	assert.False(t, IsUnavailable(rate))

	val := Validation("twitter", "open the following page")
	assert.True(t, IsValidation(val))
	assert.False(t, IsRateLimited(val))

	net := Wrap(ErrorTypeNetwork, "threads", "request failed", stderrors.New("dial tcp"))
	assert.True(t, IsUnavailable(net))
	assert.ErrorContains(t, stderrors.Unwrap(net), "dial tcp")

	assert.False(t, IsUnavailable(nil))
	assert.False(t, IsRateLimited(stderrors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Open instagram.com first", UserMessage(fmt.Errorf("wrap: %w", Validation("instagram", "Open instagram.com first"))))
	assert.Equal(t, "plain failure", UserMessage(stderrors.New("plain failure")))
	assert.Equal(t, DefaultMessage, UserMessage(emptyError{}))
	assert.Equal(t, DefaultMessage, UserMessage(nil))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "rate_limit error (code 429): slow down", RateLimited("x", "slow down").Error())
	assert.Equal(t, "validation error: wrong page", Validation("x", "wrong page").Error())
}
