package authflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docu-man/documan/internal/credstore"
	"github.com/docu-man/documan/internal/demo"
	"github.com/docu-man/documan/internal/gateway"
	"github.com/docu-man/documan/internal/identity"
	"github.com/docu-man/documan/internal/logging"
	"github.com/docu-man/documan/internal/notification"
	"github.com/docu-man/documan/internal/session"
)

type fixture struct {
	flow     *Flow
	sessions *session.Manager
	notices  *notification.Capture
	calls    *atomic.Int64
	now      *time.Time
}

// newFixture wires a flow against the given HTTP handler. A nil handler
// stands up a server that fails the test if it is ever reached.
func newFixture(t *testing.T, handler http.HandlerFunc, opts Options) *fixture {
	t.Helper()

	var calls atomic.Int64
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected network call to %s", r.URL.Path)
		}
	}
	inner := handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		inner(w, r)
	}))
	t.Cleanup(srv.Close)

	store := credstore.Open(t.TempDir(), time.Hour, logging.Discard())
	sessions := session.NewManager(store)
	sessions.Initialize()

	gw, err := gateway.New(srv.URL, 5*time.Second, gateway.Options{
		Credentials: store,
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}

	now := time.Now()
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return now }
	}

	notices := notification.NewCapture()
	return &fixture{
		flow:     New(gw, sessions, notices, opts),
		sessions: sessions,
		notices:  notices,
		calls:    &calls,
		now:      &now,
	}
}

func otpSentHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"status":true,"data":"OTP Sent on your mobile number"}`))
}

func TestSubmitMobileValidation(t *testing.T) {
	cases := []struct {
		name   string
		mobile string
	}{
		{"empty", ""},
		{"too short", "98765"},
		{"too long", "98765432101"},
		{"bad leading digit", "1234567890"},
		{"non numeric", "98765abcde"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, nil, Options{})
			err := fx.flow.SubmitMobile(context.Background(), tc.mobile)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if fx.flow.Step() != StepMobile {
				t.Fatalf("step = %q, want mobile", fx.flow.Step())
			}
			if fx.calls.Load() != 0 {
				t.Fatal("invalid input must be rejected before any network call")
			}
		})
	}
}

func TestSubmitMobileAdvancesWhenOTPSent(t *testing.T) {
	fx := newFixture(t, otpSentHandler, Options{})

	if err := fx.flow.SubmitMobile(context.Background(), "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	if fx.flow.Step() != StepOTP {
		t.Fatalf("step = %q, want otp", fx.flow.Step())
	}
	if fx.flow.Mobile() != "9876543210" {
		t.Fatalf("mobile = %q", fx.flow.Mobile())
	}
	msg, ok := fx.notices.Last()
	if !ok || msg.Kind != notification.KindSuccess {
		t.Fatalf("expected success notice, got %+v", msg)
	}
}

func TestSubmitMobileNotRegisteredStays(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":false,"data":"Mobile number not registered."}`))
	}, Options{})

	if err := fx.flow.SubmitMobile(context.Background(), "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	if fx.flow.Step() != StepMobile {
		t.Fatalf("step = %q, want mobile", fx.flow.Step())
	}
	msg, ok := fx.notices.Last()
	if !ok || msg.Kind != notification.KindInfo {
		t.Fatalf("expected info notice, got %+v", msg)
	}
	if !strings.Contains(msg.Body, "not registered") {
		t.Fatalf("notice body = %q", msg.Body)
	}
}

func TestSubmitMobileConnectivityFailure(t *testing.T) {
	// A closed server forces a transport error.
	srv := httptest.NewServer(http.HandlerFunc(otpSentHandler))
	srv.Close()

	store := credstore.Open(t.TempDir(), time.Hour, logging.Discard())
	sessions := session.NewManager(store)
	sessions.Initialize()
	gw, err := gateway.New(srv.URL, time.Second, gateway.Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	notices := notification.NewCapture()
	flow := New(gw, sessions, notices, Options{})

	if err := flow.SubmitMobile(context.Background(), "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	if flow.Step() != StepMobile {
		t.Fatalf("step = %q, want mobile", flow.Step())
	}
	msg, ok := notices.Last()
	if !ok || msg.Kind != notification.KindError {
		t.Fatalf("expected error notice, got %+v", msg)
	}
}

func TestDemoLoginBypassesNetwork(t *testing.T) {
	fx := newFixture(t, nil, Options{DemoLogin: true})
	ctx := context.Background()

	if err := fx.flow.SubmitMobile(ctx, demo.Mobile); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	if fx.flow.Step() != StepOTP {
		t.Fatalf("step = %q, want otp", fx.flow.Step())
	}

	ok, err := fx.flow.SubmitOTP(ctx, demo.OTP)
	if err != nil || !ok {
		t.Fatalf("SubmitOTP = %v, %v", ok, err)
	}

	state := fx.sessions.State()
	if !state.IsAuthenticated {
		t.Fatal("expected authenticated session")
	}
	if !demo.IsToken(state.Token) {
		t.Fatalf("token %q is not a demo token", state.Token)
	}
	if state.User != demo.NewProfile() {
		t.Fatalf("user = %+v", state.User)
	}
	if fx.calls.Load() != 0 {
		t.Fatalf("demo login made %d network calls, want 0", fx.calls.Load())
	}
}

func TestDemoMobileIgnoredWhenDisabled(t *testing.T) {
	fx := newFixture(t, otpSentHandler, Options{DemoLogin: false})

	if err := fx.flow.SubmitMobile(context.Background(), demo.Mobile); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	if fx.calls.Load() != 1 {
		t.Fatalf("expected the backend to be consulted, calls = %d", fx.calls.Load())
	}
}

func TestSubmitOTPSuccessCommitsSession(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "generateOTP"):
			otpSentHandler(w, r)
		case strings.Contains(r.URL.Path, "validateOTP"):
			w.Write([]byte(`{"status":true,"token":"real-token","user":{"id":"u1","name":"Asha","mobile_number":"9876543210","role":"user"}}`))
		}
	}, Options{})
	ctx := context.Background()

	if err := fx.flow.SubmitMobile(ctx, "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	ok, err := fx.flow.SubmitOTP(ctx, "123456")
	if err != nil || !ok {
		t.Fatalf("SubmitOTP = %v, %v", ok, err)
	}

	state := fx.sessions.State()
	if !state.IsAuthenticated || state.Token != "real-token" {
		t.Fatalf("state = %+v", state)
	}
	if state.User != (identity.Profile{ID: "u1", Name: "Asha", Mobile: "9876543210", Role: "user"}) {
		t.Fatalf("user = %+v", state.User)
	}
}

func TestSubmitOTPRejectedStaysAtOTPStep(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "generateOTP"):
			otpSentHandler(w, r)
		case strings.Contains(r.URL.Path, "validateOTP"):
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":false,"data":"Invalid OTP"}`))
		}
	}, Options{})
	ctx := context.Background()

	if err := fx.flow.SubmitMobile(ctx, "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	ok, err := fx.flow.SubmitOTP(ctx, "000000")
	if err != nil {
		t.Fatalf("SubmitOTP: %v", err)
	}
	if ok {
		t.Fatal("expected rejection")
	}
	if fx.flow.Step() != StepOTP {
		t.Fatalf("step = %q, want otp for a retry", fx.flow.Step())
	}
	if fx.sessions.State().IsAuthenticated {
		t.Fatal("rejected OTP must not authenticate")
	}
	msg, _ := fx.notices.Last()
	if msg.Kind != notification.KindError {
		t.Fatalf("expected error notice, got %+v", msg)
	}
}

func TestSubmitOTPValidation(t *testing.T) {
	fx := newFixture(t, otpSentHandler, Options{})
	ctx := context.Background()
	if err := fx.flow.SubmitMobile(ctx, "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}

	before := fx.calls.Load()
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		if _, err := fx.flow.SubmitOTP(ctx, code); err == nil {
			t.Errorf("code %q: expected validation error", code)
		}
	}
	if fx.calls.Load() != before {
		t.Fatal("malformed codes must not reach the network")
	}
}

func TestResendWindow(t *testing.T) {
	fx := newFixture(t, otpSentHandler, Options{})
	ctx := context.Background()

	if err := fx.flow.SubmitMobile(ctx, "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}
	if fx.flow.CanResend() {
		t.Fatal("resend must be blocked right after sending")
	}
	if err := fx.flow.Resend(ctx); err != ErrResendNotReady {
		t.Fatalf("Resend = %v, want ErrResendNotReady", err)
	}

	*fx.now = fx.now.Add(29 * time.Second)
	if fx.flow.CanResend() {
		t.Fatal("resend must stay blocked before the window elapses")
	}

	*fx.now = fx.now.Add(time.Second)
	if !fx.flow.CanResend() {
		t.Fatal("resend must unlock once the window elapses")
	}
	if err := fx.flow.Resend(ctx); err != nil {
		t.Fatalf("Resend: %v", err)
	}
	// The window re-arms after a resend.
	if fx.flow.CanResend() {
		t.Fatal("resend must re-arm the window")
	}
	if fx.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", fx.calls.Load())
	}
}

func TestBackDiscardsMobile(t *testing.T) {
	fx := newFixture(t, otpSentHandler, Options{})
	if err := fx.flow.SubmitMobile(context.Background(), "9876543210"); err != nil {
		t.Fatalf("SubmitMobile: %v", err)
	}

	fx.flow.Back()
	if fx.flow.Step() != StepMobile {
		t.Fatalf("step = %q, want mobile", fx.flow.Step())
	}
	if fx.flow.Mobile() != "" {
		t.Fatal("expected remembered mobile to be discarded")
	}
}
