// Package authflow drives the two-step OTP login: mobile entry, then OTP
// entry, ending in a committed session. Every failure surfaces exactly one
// notice and leaves the flow ready for explicit re-submission; nothing
// retries on its own.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docu-man/documan/internal/demo"
	"github.com/docu-man/documan/internal/gateway"
	"github.com/docu-man/documan/internal/identity"
	"github.com/docu-man/documan/internal/notification"
	"github.com/docu-man/documan/internal/session"
)

// Step names the flow's current state.
type Step string

const (
	// StepMobile awaits a mobile number.
	StepMobile Step = "mobile"
	// StepOTP awaits the 6-digit code.
	StepOTP Step = "otp"
)

const resendWindow = 30 * time.Second

const (
	notRegisteredNotice = "Mobile number not registered. Please contact your administrator."
	connectivityNotice  = "Unable to reach the server. Please check your connection and try again."
	genericRetryNotice  = "Something went wrong. Please try again."
	invalidOTPNotice    = "Invalid OTP. Please try again."
	demoLoginNotice     = "Demo login: OTP " + demo.OTP + " will be accepted."
	loginSuccessNotice  = "Login successful!"
)

// ErrResendNotReady is returned when the resend window has not elapsed.
var ErrResendNotReady = errors.New("resend not available yet")

// Options tunes the flow; the zero value is production behavior.
type Options struct {
	// DemoLogin enables the fixed test credential bypass.
	DemoLogin bool
	// Clock overrides time.Now for the resend window. Tests use it.
	Clock func() time.Time
}

// Flow is the login state machine. One instance per login attempt; it is
// discarded once the session becomes authenticated.
type Flow struct {
	gw       *gateway.Gateway
	sessions *session.Manager
	notifier notification.Notifier

	demoLogin bool
	clock     func() time.Time

	step     Step
	mobile   string
	resendAt time.Time
}

// New builds a flow at the mobile-entry step.
func New(gw *gateway.Gateway, sessions *session.Manager, notifier notification.Notifier, opts Options) *Flow {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Flow{
		gw:        gw,
		sessions:  sessions,
		notifier:  notifier,
		demoLogin: opts.DemoLogin,
		clock:     clock,
		step:      StepMobile,
	}
}

// Step returns the current step.
func (f *Flow) Step() Step { return f.step }

// Mobile returns the number carried into the OTP step.
func (f *Flow) Mobile() string { return f.mobile }

// SubmitMobile validates the number and requests an OTP for it. Malformed
// input is rejected locally and returned for inline display; every other
// outcome is surfaced as a notice. The flow advances to the OTP step only
// when an OTP is (or is pretended to be) on its way.
func (f *Flow) SubmitMobile(ctx context.Context, mobile string) error {
	if f.step != StepMobile {
		return fmt.Errorf("cannot submit mobile at step %q", f.step)
	}
	if err := identity.ValidateMobile(mobile); err != nil {
		return err
	}

	if f.demoLogin && mobile == demo.Mobile {
		f.mobile = mobile
		f.enterOTPStep()
		f.notify(ctx, notification.KindInfo, demoLoginNotice)
		return nil
	}

	f.dispatchOTP(ctx, mobile)
	return nil
}

// CanResend reports whether the resend window has elapsed. It only ever
// re-enables the action; it never triggers one.
func (f *Flow) CanResend() bool {
	return f.step == StepOTP && !f.clock().Before(f.resendAt)
}

// Resend re-requests an OTP for the remembered mobile number and re-arms the
// window.
func (f *Flow) Resend(ctx context.Context) error {
	if f.step != StepOTP {
		return fmt.Errorf("cannot resend at step %q", f.step)
	}
	if !f.CanResend() {
		return ErrResendNotReady
	}
	if f.demoLogin && f.mobile == demo.Mobile {
		f.enterOTPStep()
		f.notify(ctx, notification.KindInfo, demoLoginNotice)
		return nil
	}
	f.dispatchOTP(ctx, f.mobile)
	return nil
}

// SubmitOTP verifies the code and, on success, commits the session. The
// returned bool reports whether the flow reached the authenticated terminal
// state; on false the flow stays at the OTP step for another attempt.
func (f *Flow) SubmitOTP(ctx context.Context, code string) (bool, error) {
	if f.step != StepOTP {
		return false, fmt.Errorf("cannot submit OTP at step %q", f.step)
	}
	if err := identity.ValidateOTP(code); err != nil {
		return false, err
	}

	if f.demoLogin && f.mobile == demo.Mobile && code == demo.OTP {
		if err := f.sessions.Login(demo.NewToken(f.clock()), demo.NewProfile()); err != nil {
			return false, err
		}
		f.notify(ctx, notification.KindSuccess, loginSuccessNotice)
		return true, nil
	}

	result := verifyOTP(ctx, f.gw, f.mobile, code)
	switch result.kind {
	case validateSuccess:
		if err := f.sessions.Login(result.token, result.user); err != nil {
			return false, err
		}
		f.notify(ctx, notification.KindSuccess, loginSuccessNotice)
		return true, nil
	case validateTransportFailure:
		f.notify(ctx, notification.KindError, result.message)
		return false, nil
	default:
		f.notify(ctx, notification.KindError, result.message)
		return false, nil
	}
}

// Back returns to the mobile step, discarding the remembered number.
func (f *Flow) Back() {
	f.step = StepMobile
	f.mobile = ""
	f.resendAt = time.Time{}
}

func (f *Flow) dispatchOTP(ctx context.Context, mobile string) {
	result := requestOTP(ctx, f.gw, mobile)
	switch result.kind {
	case generateSent:
		f.mobile = mobile
		f.enterOTPStep()
		f.notify(ctx, notification.KindSuccess, fmt.Sprintf("OTP sent successfully to %s", mobile))
	case generateNotRegistered:
		f.notify(ctx, notification.KindInfo, result.message)
	case generateRejected, generateTransportFailure, generateAmbiguous:
		f.notify(ctx, notification.KindError, result.message)
	}
}

func (f *Flow) enterOTPStep() {
	f.step = StepOTP
	f.resendAt = f.clock().Add(resendWindow)
}

func (f *Flow) notify(ctx context.Context, kind, body string) {
	if f.notifier == nil {
		return
	}
	_ = f.notifier.Send(ctx, notification.Message{Kind: kind, Body: body})
}
