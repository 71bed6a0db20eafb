package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginAfterVerification(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	mustRegister(t, env, "alice@example.com", "correct-horse")

	_, err := env.engine.Login(ctx, "alice@example.com", "correct-horse")
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("unverified Login = %v, want ErrEmailNotVerified", err)
	}

	mustVerify(t, env)

	result, err := env.engine.Login(ctx, "Alice@Example.COM", "correct-horse")
	if err != nil {
		t.Fatalf("Login after verify: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	mustRegister(t, env, "alice@example.com", "correct-horse")
	mustVerify(t, env)

	// Wrong password and unknown account are indistinguishable.
	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.engine.Login(ctx, "nobody@example.com", "whatever-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown account = %v, want ErrInvalidCredentials", err)
	}
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	mustRegister(t, env, "alice@example.com", "correct-horse")
	mustVerify(t, env)

	for i := 0; i < 5; i++ {
		if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure #%d = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// The lock holds even against the correct password.
	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked Login = %v, want ErrAccountLocked", err)
	}

	env.mr.FastForward(16 * time.Minute)

	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login after lock expiry: %v", err)
	}
}

func TestUnverifiedLoginDoesNotCountTowardLockout(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	mustRegister(t, env, "alice@example.com", "correct-horse")

	for i := 0; i < 10; i++ {
		if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); !errors.Is(err, ErrEmailNotVerified) {
			t.Fatalf("attempt #%d = %v, want ErrEmailNotVerified", i+1, err)
		}
	}

	mustVerify(t, env)

	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login after verify: %v", err)
	}
}

func TestSuccessfulLoginResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	mustRegister(t, env, "alice@example.com", "correct-horse")
	mustVerify(t, env)

	for i := 0; i < 4; i++ {
		if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure #%d: %v", i+1, err)
		}
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// The counter starts over; four more failures still do not lock.
	for i := 0; i < 4; i++ {
		if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset failure #%d = %v, want ErrInvalidCredentials", i+1, err)
		}
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login after four post-reset failures: %v", err)
	}
}

func TestLoginWithoutVerificationGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Account.RequireVerifiedForLogin = false
	})

	mustRegister(t, env, "alice@example.com", "correct-horse")

	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login with gate disabled: %v", err)
	}
}

func TestReauthPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEngine(t)

	result := mustRegister(t, env, "alice@example.com", "correct-horse")

	if err := env.engine.ReauthPassword(ctx, result.User.ID, "correct-horse"); err != nil {
		t.Fatalf("ReauthPassword: %v", err)
	}
	if err := env.engine.ReauthPassword(ctx, result.User.ID, "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ReauthPassword wrong = %v, want ErrInvalidCredentials", err)
	}
	if err := env.engine.ReauthPassword(ctx, "no-such-account", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ReauthPassword unknown = %v, want ErrInvalidCredentials", err)
	}
}
