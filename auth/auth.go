// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"errors"
)

var ErrInvalidToken = errors.New("invalid request token")

// ValidateToken checks the Slack verification token against every accepted token.
// Comparison is constant time and does not stop at the first match.
func ValidateToken(token string, accepted []string) error {
	if token == "" {
		return ErrInvalidToken
	}

	ok := false
	for _, a := range accepted {
		if hmac.Equal([]byte(token), []byte(a)) {
			ok = true
		}
	}
	if !ok {
		return ErrInvalidToken
	}
	return nil
}
