package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		expectErr string
	}{
		{
			name:  "valid JWS token (2 dots)",
			token: "eyJhbGciOiJSUzI1NiIsImtpZCI6ImsxIn0.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature",
		},
		{
			name:      "JWE token (4 dots)",
			token:     "header.encrypted_key.iv.ciphertext.tag",
			expectErr: ErrUnexpectedTokenDots.Error(),
		},
		{
			name:      "single segment",
			token:     "not-a-token",
			expectErr: ErrUnexpectedTokenDots.Error(),
		},
		{
			name:      "many dots (100)",
			token:     strings.Repeat("a.", 100) + "z",
			expectErr: ErrUnexpectedTokenDots.Error(),
		},
		{
			name:      "empty token",
			token:     "",
			expectErr: "token is empty",
		},
		{
			name:      "token exceeds 1MB",
			token:     strings.Repeat("a", 1024*1024+1),
			expectErr: ErrTokenTooLarge.Error(),
		},
		{
			name:  "token exactly 1MB (allowed)",
			token: "header." + strings.Repeat("a", 1024*1024-11) + ".sig",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTokenFormat(tt.token)
			if tt.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectErr)
		})
	}
}
