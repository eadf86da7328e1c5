package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("status 401: unauthorized")
	err := New(KindAuth, "invoice.list", cause)

	assert.Equal(t, UserMessage(KindAuth), err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Detail(), "invoice.list")
	assert.Contains(t, err.Detail(), "unauthorized")
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(KindRateLimited, "op", nil))

	assert.Equal(t, KindRateLimited, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindRateLimited))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(errors.New("plain"), KindUnknown))
}

func TestUserMessage_EveryKindHasMessage(t *testing.T) {
	kinds := []Kind{KindAuth, KindNotFound, KindRateLimited, KindForbidden,
		KindNetwork, KindTimeout, KindValidation, KindUnknown}
	for _, k := range kinds {
		assert.NotEmpty(t, UserMessage(k), string(k))
	}
	assert.Equal(t, UserMessage(KindUnknown), UserMessage(Kind("bogus")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindRateLimited, true},
		{KindNetwork, true},
		{KindTimeout, true},
		{KindAuth, false},
		{KindNotFound, false},
		{KindForbidden, false},
		{KindValidation, false},
		{KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.kind))
		})
	}
}

func TestValidation(t *testing.T) {
	err := Validation("invoice.create", "title", "견적서 제목은 필수입니다.")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "title", err.Field)
	assert.Equal(t, "견적서 제목은 필수입니다.", err.Error())
}
