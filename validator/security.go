package validator

import (
	"errors"
	"strings"
)

var (
	// ErrUnexpectedTokenDots is returned when a token is not made of exactly
	// three dot-separated segments.
	ErrUnexpectedTokenDots = errors.New("token must have three dot-separated segments")

	// ErrTokenTooLarge is returned for tokens above maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size (1MB)")
)

const (
	// compactSegmentDots is the number of dots in a JWS compact
	// serialization: header.payload.signature.
	compactSegmentDots = 2

	// maxTokenSize caps the raw token before any decoding happens.
	// Access tokens are a few KB at most.
	maxTokenSize = 1024 * 1024
)

// validateTokenFormat rejects obviously invalid inputs before they reach the
// JWS parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}

	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}

	if strings.Count(tokenString, ".") != compactSegmentDots {
		return ErrUnexpectedTokenDots
	}

	return nil
}
