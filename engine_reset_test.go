package goSSO

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func requestResetToken(t *testing.T, e *Engine) string {
	t.Helper()

	raw, err := e.RequestPasswordReset(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if raw == "" {
		t.Fatal("expected a raw reset token")
	}
	return raw
}

func TestResetRequestGuardWindow(t *testing.T) {
	e, _, _, mr := newTestEngine(t)
	ctx := context.Background()

	requestResetToken(t, e)

	if _, err := e.RequestPasswordReset(ctx, testIdentifier); !errors.Is(err, ErrResetTooFrequent) {
		t.Fatalf("expected ErrResetTooFrequent inside guard window, got %v", err)
	}

	mr.FastForward(61 * time.Second)

	if _, err := e.RequestPasswordReset(ctx, testIdentifier); err != nil {
		t.Fatalf("request after guard expiry failed: %v", err)
	}
}

func TestResetRawTokenNeverStored(t *testing.T) {
	e, _, _, mr := newTestEngine(t)

	raw := requestResetToken(t, e)

	stored, err := mr.Get("rst:" + testIdentifier)
	if err != nil {
		t.Fatalf("expected stored digest: %v", err)
	}
	if stored == raw {
		t.Fatal("store must hold the digest, not the raw token")
	}
}

func TestResetConfirmHappyPath(t *testing.T) {
	e, dir, rdb, _ := newTestEngine(t)
	ctx := context.Background()

	raw := requestResetToken(t, e)

	if err := e.ConfirmPasswordReset(ctx, testIdentifier, raw, "freshPass123"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if got := dir.password(testUserID); got != "freshPass123" {
		t.Fatalf("directory password not updated, got %q", got)
	}

	version, err := e.CurrentAuthVersion(ctx, testUserID)
	if err != nil {
		t.Fatalf("CurrentAuthVersion failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version bump to 1, got %d", version)
	}

	if got := rdb.XLen(ctx, "auth-events").Val(); got != 1 {
		t.Fatalf("expected 1 published event, got %d", got)
	}

	// One-time: the token is gone after success.
	if err := e.ConfirmPasswordReset(ctx, testIdentifier, raw, "anotherPass123"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired on reuse, got %v", err)
	}
}

func TestResetLockoutStickyWithCorrectToken(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	raw := requestResetToken(t, e)

	for i := int64(0); i < e.config.Reset.MaxFailures; i++ {
		if err := e.ConfirmPasswordReset(ctx, testIdentifier, "wrong-token", "freshPass123"); !errors.Is(err, ErrResetTokenMismatch) {
			t.Fatalf("attempt %d: expected ErrResetTokenMismatch, got %v", i, err)
		}
	}

	// The ceiling holds even for the genuine token.
	if err := e.ConfirmPasswordReset(ctx, testIdentifier, raw, "freshPass123"); !errors.Is(err, ErrResetTooManyFailures) {
		t.Fatalf("expected ErrResetTooManyFailures with correct token, got %v", err)
	}

	if got := e.Metrics().Value(MetricResetLockout); got != 1 {
		t.Fatalf("expected 1 lockout in metrics, got %d", got)
	}
}

func TestResetTokenDeletedEagerlyOnLockout(t *testing.T) {
	e, _, _, mr := newTestEngine(t)
	ctx := context.Background()

	requestResetToken(t, e)

	for i := int64(0); i < e.config.Reset.MaxFailures; i++ {
		_ = e.ConfirmPasswordReset(ctx, testIdentifier, "wrong-token", "freshPass123")
	}

	if mr.Exists("rst:" + testIdentifier) {
		t.Fatal("token digest must be deleted when the failure ceiling is hit")
	}
}

func TestResetFailureCounterInheritsTokenTTL(t *testing.T) {
	e, _, _, mr := newTestEngine(t)
	ctx := context.Background()

	requestResetToken(t, e)

	if err := e.ConfirmPasswordReset(ctx, testIdentifier, "wrong-token", "freshPass123"); !errors.Is(err, ErrResetTokenMismatch) {
		t.Fatalf("expected ErrResetTokenMismatch, got %v", err)
	}

	counterTTL := mr.TTL("rstf:" + testIdentifier)
	tokenTTL := mr.TTL("rst:" + testIdentifier)
	if counterTTL <= 0 {
		t.Fatal("failure counter must carry a TTL")
	}
	if counterTTL > tokenTTL {
		t.Fatalf("counter ttl %v must not outlive token ttl %v", counterTTL, tokenTTL)
	}
}

func TestResetExpiredToken(t *testing.T) {
	e, _, _, mr := newTestEngine(t)
	ctx := context.Background()

	raw := requestResetToken(t, e)

	mr.FastForward(6 * time.Minute)

	if err := e.ConfirmPasswordReset(ctx, testIdentifier, raw, "freshPass123"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestResetUnknownIdentityGetsDecoy(t *testing.T) {
	e, _, _, mr := newTestEngine(t)
	ctx := context.Background()

	raw, err := e.RequestPasswordReset(ctx, "13899999999")
	if err != nil {
		t.Fatalf("unknown identity must not error, got %v", err)
	}
	if raw == "" {
		t.Fatal("decoy response must look like a real one")
	}
	if mr.Exists("rst:13899999999") {
		t.Fatal("nothing may be stored for an unknown identity")
	}

	if err := e.ConfirmPasswordReset(ctx, "13899999999", raw, "freshPass123"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("decoy token must never confirm, got %v", err)
	}
}

func TestResetPolicyViolation(t *testing.T) {
	e, _, _, mr := newTestEngine(t)
	ctx := context.Background()

	raw := requestResetToken(t, e)

	for _, weak := range []string{"short1", "lettersonly", "12345678"} {
		if err := e.ConfirmPasswordReset(ctx, testIdentifier, raw, weak); !errors.Is(err, ErrPasswordPolicy) {
			t.Fatalf("expected ErrPasswordPolicy for %q, got %v", weak, err)
		}
	}

	// Policy failures are not token failures: the token survives.
	if !mr.Exists("rst:" + testIdentifier) {
		t.Fatal("token must survive policy violations")
	}
	if err := e.ConfirmPasswordReset(ctx, testIdentifier, raw, "strongPass123"); err != nil {
		t.Fatalf("confirm after policy retries failed: %v", err)
	}
}

func TestResetTokenStrategies(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	e.config.Reset.Strategy = ResetUUID
	raw, err := e.newResetToken()
	if err != nil {
		t.Fatalf("uuid strategy failed: %v", err)
	}
	if _, err := uuid.Parse(raw); err != nil {
		t.Fatalf("expected uuid-shaped token, got %q", raw)
	}

	e.config.Reset.Strategy = ResetOTP
	raw, err = e.newResetToken()
	if err != nil {
		t.Fatalf("otp strategy failed: %v", err)
	}
	if len(raw) != e.config.Reset.OTPDigits {
		t.Fatalf("expected %d otp digits, got %q", e.config.Reset.OTPDigits, raw)
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			t.Fatalf("otp must be numeric, got %q", raw)
		}
	}
}
