package identity

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateMobile(t *testing.T) {
	cases := []struct {
		name   string
		mobile string
		want   error
	}{
		{"valid 9 prefix", "9876543210", nil},
		{"valid 6 prefix", "6123456789", nil},
		{"empty", "", ErrMobileRequired},
		{"too short", "987654321", ErrInvalidMobile},
		{"too long", "98765432100", ErrInvalidMobile},
		{"leading 5", "5876543210", ErrInvalidMobile},
		{"letters", "98765abcde", ErrInvalidMobile},
		{"spaces", "98765 4321", ErrInvalidMobile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateMobile(tc.mobile); !errors.Is(err, tc.want) {
				t.Fatalf("ValidateMobile(%q) = %v, want %v", tc.mobile, err, tc.want)
			}
		})
	}
}

func TestValidateOTP(t *testing.T) {
	cases := []struct {
		name string
		code string
		want error
	}{
		{"valid", "123456", nil},
		{"empty", "", ErrIncompleteOTP},
		{"short", "12345", ErrIncompleteOTP},
		{"long", "1234567", ErrIncompleteOTP},
		{"letters", "12a456", ErrIncompleteOTP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateOTP(tc.code); !errors.Is(err, tc.want) {
				t.Fatalf("ValidateOTP(%q) = %v, want %v", tc.code, err, tc.want)
			}
		})
	}
}

func TestProfileJSONUsesMobileNumberKey(t *testing.T) {
	data, err := json.Marshal(Profile{Mobile: "9876543210"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"mobile_number":"9876543210"}`
	if string(data) != want {
		t.Fatalf("json = %s, want %s", data, want)
	}
}
