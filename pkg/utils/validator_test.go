package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"billing@acme.test", true},
		{"first.last+tag@sub.example.co.kr", true},
		{"no-at-sign", false},
		{"user@host", false},
		{"@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "견적서", SanitizeString("  견적\x00서\n "))
	assert.True(t, IsBlank(" \t\r\n"))
	assert.False(t, IsBlank(" a "))
}
