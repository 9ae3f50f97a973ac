package identity

import (
	"errors"
	"regexp"
)

var (
	// ErrMobileRequired is returned when no mobile number was supplied.
	ErrMobileRequired = errors.New("mobile number is required")
	// ErrInvalidMobile is returned for anything but a 10-digit Indian mobile number.
	ErrInvalidMobile = errors.New("please enter a valid 10-digit mobile number")
	// ErrIncompleteOTP is returned when the supplied code is not 6 digits.
	ErrIncompleteOTP = errors.New("please enter the complete 6-digit OTP")
)

var (
	mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	otpPattern    = regexp.MustCompile(`^\d{6}$`)
)

// Profile describes the authenticated user. The mobile number is the identity
// key; the remaining fields are whatever the backend chose to return. A
// profile is never mutated after creation, only replaced on the next login.
type Profile struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Mobile string `json:"mobile_number"`
	Role   string `json:"role,omitempty"`
}

// ValidateMobile checks the 10-digit mobile number format client-side so no
// network call is made for malformed input.
func ValidateMobile(mobile string) error {
	if mobile == "" {
		return ErrMobileRequired
	}
	if !mobilePattern.MatchString(mobile) {
		return ErrInvalidMobile
	}
	return nil
}

// ValidateOTP checks that code is exactly 6 digits.
func ValidateOTP(code string) error {
	if !otpPattern.MatchString(code) {
		return ErrIncompleteOTP
	}
	return nil
}
