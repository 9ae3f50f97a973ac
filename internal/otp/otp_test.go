package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestGenerateShape(t *testing.T) {
	seen := map[string]bool{}
	// Enough draws that codes below 100000 show up, exercising the padding.
	for i := 0; i < 200; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
		seen[code] = true
	}
	if len(seen) == 1 {
		t.Fatal("generated codes were all identical")
	}
}

func TestVerifyConsumesChallenge(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "9876543210", "123456", time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Verify(ctx, "9876543210", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	// The challenge is single-use.
	if err := store.Verify(ctx, "9876543210", "123456"); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("second verify = %v, want ErrNoChallenge", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "9876543210", "123456", time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Verify(ctx, "9876543210", "654321"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("verify = %v, want ErrMismatch", err)
	}
	// A wrong attempt does not consume the challenge.
	if err := store.Verify(ctx, "9876543210", "123456"); err != nil {
		t.Fatalf("correct code after wrong attempt: %v", err)
	}
}

func TestVerifyExpiredChallenge(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "9876543210", "123456", time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if err := store.Verify(ctx, "9876543210", "123456"); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("verify = %v, want ErrNoChallenge", err)
	}
}

func TestCreateReplacesPendingChallenge(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "9876543210", "111111", time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, "9876543210", "222222", time.Minute); err != nil {
		t.Fatalf("recreate: %v", err)
	}

	if err := store.Verify(ctx, "9876543210", "111111"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("old code = %v, want ErrMismatch", err)
	}
	if err := store.Verify(ctx, "9876543210", "222222"); err != nil {
		t.Fatalf("new code: %v", err)
	}
}
