// Package demo holds the fixed test-login credential pair and the synthetic
// token marker. The bypass is only reachable when the configuration enables
// it; production config refuses to.
package demo

import (
	"strconv"
	"strings"
	"time"

	"github.com/docu-man/documan/internal/identity"
)

const (
	// Mobile is the fixed demo mobile number.
	Mobile = "9999999999"
	// OTP is the fixed code accepted for the demo mobile number.
	OTP = "123456"
	// TokenPrefix marks synthetic tokens that never correspond to a backend
	// session; the gateway suppresses forced logout for them.
	TokenPrefix = "test_token_"
)

// NewToken synthesizes a demo session token, unique per login.
func NewToken(now time.Time) string {
	return TokenPrefix + strconv.FormatInt(now.UnixNano(), 10)
}

// IsToken reports whether token carries the synthetic marker.
func IsToken(token string) bool {
	return strings.HasPrefix(token, TokenPrefix)
}

// NewProfile synthesizes the profile committed by a demo login.
func NewProfile() identity.Profile {
	return identity.Profile{ID: "demo", Name: "Test User", Mobile: Mobile, Role: "user"}
}
