package authflow

import (
	"context"
	"errors"
	"strings"

	"github.com/docu-man/documan/internal/gateway"
	"github.com/docu-man/documan/internal/identity"
)

// generateKind discriminates the possible outcomes of an OTP-generation call.
// The backend signals failure through either HTTP errors or a 200 with a
// false status flag, so both channels are folded here, once.
type generateKind int

const (
	generateSent generateKind = iota
	generateNotRegistered
	generateRejected
	generateTransportFailure
	generateAmbiguous
)

type generateResult struct {
	kind    generateKind
	message string
}

type validateKind int

const (
	validateSuccess validateKind = iota
	validateRejected
	validateTransportFailure
)

type validateResult struct {
	kind    validateKind
	message string
	token   string
	user    identity.Profile
}

type generateRequest struct {
	MobileNumber string `json:"mobile_number"`
}

type validateRequest struct {
	MobileNumber string `json:"mobile_number"`
	OTP          string `json:"otp"`
}

func requestOTP(ctx context.Context, gw *gateway.Gateway, mobile string) generateResult {
	env, err := gw.PostJSON(ctx, "/generateOTP", generateRequest{MobileNumber: mobile})
	if err != nil {
		var apiErr *gateway.APIError
		switch {
		case errors.As(err, &apiErr):
			return generateResult{kind: generateRejected, message: orDefault(apiErr.UserMessage(), genericRetryNotice)}
		case errors.Is(err, gateway.ErrUnexpectedResponse):
			return generateResult{kind: generateAmbiguous, message: genericRetryNotice}
		default:
			return generateResult{kind: generateTransportFailure, message: connectivityNotice}
		}
	}

	if env.OK() {
		return generateResult{kind: generateSent}
	}

	// status=false has meant both "not registered" and "sent anyway" across
	// backend revisions; the message text is the only discriminator left.
	msg := env.Text()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not regist"):
		return generateResult{kind: generateNotRegistered, message: orDefault(msg, notRegisteredNotice)}
	case strings.Contains(lower, "otp sent"), strings.Contains(lower, "sent"):
		return generateResult{kind: generateSent, message: msg}
	case msg != "":
		return generateResult{kind: generateRejected, message: msg}
	default:
		return generateResult{kind: generateAmbiguous, message: genericRetryNotice}
	}
}

func verifyOTP(ctx context.Context, gw *gateway.Gateway, mobile, code string) validateResult {
	env, err := gw.PostJSON(ctx, "/validateOTP", validateRequest{MobileNumber: mobile, OTP: code})
	if err != nil {
		var apiErr *gateway.APIError
		switch {
		case errors.As(err, &apiErr):
			return validateResult{kind: validateRejected, message: orDefault(apiErr.UserMessage(), invalidOTPNotice)}
		case errors.Is(err, gateway.ErrUnexpectedResponse):
			return validateResult{kind: validateRejected, message: genericRetryNotice}
		default:
			return validateResult{kind: validateTransportFailure, message: connectivityNotice}
		}
	}

	// Token presence is the success signal regardless of the status flag.
	if env.Token != "" {
		user, ok := env.Profile()
		if !ok {
			user = identity.Profile{Mobile: mobile}
		}
		return validateResult{kind: validateSuccess, token: env.Token, user: user}
	}
	return validateResult{kind: validateRejected, message: orDefault(env.Text(), invalidOTPNotice)}
}

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
