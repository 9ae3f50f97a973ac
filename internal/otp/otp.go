// Package otp generates and verifies one-time passcodes for the stub
// backend. Codes are never stored in the clear; challenges hold a bcrypt
// hash with a Redis TTL.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const digits = 6

var (
	// ErrNoChallenge is returned when no pending OTP exists for the mobile.
	ErrNoChallenge = errors.New("no pending OTP for this mobile number")
	// ErrMismatch is returned when the supplied code is wrong.
	ErrMismatch = errors.New("invalid OTP")
)

// Generate returns a 6-digit numeric code using crypto/rand. Drawing the
// whole code at once keeps every digit uniform.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// Store keeps pending challenges keyed by mobile number.
type Store interface {
	// Create replaces any pending challenge for mobile with a new one that
	// expires after ttl.
	Create(ctx context.Context, mobile, code string, ttl time.Duration) error
	// Verify checks code against the pending challenge and consumes it on
	// success.
	Verify(ctx context.Context, mobile, code string) error
}

// RedisStore implements Store on Redis, letting key expiry enforce the TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed challenge store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func challengeKey(mobile string) string {
	return "otp:v1:" + mobile
}

// Create hashes the code and stores it under the mobile's key with ttl.
func (s *RedisStore) Create(ctx context.Context, mobile, code string, ttl time.Duration) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, challengeKey(mobile), string(hash), ttl).Err(); err != nil {
		return fmt.Errorf("store otp challenge: %w", err)
	}
	return nil
}

// Verify compares code against the stored hash and deletes the challenge on
// success. An expired or absent key reads as ErrNoChallenge.
func (s *RedisStore) Verify(ctx context.Context, mobile, code string) error {
	hash, err := s.client.Get(ctx, challengeKey(mobile)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNoChallenge
	}
	if err != nil {
		return fmt.Errorf("load otp challenge: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return ErrMismatch
	}
	if err := s.client.Del(ctx, challengeKey(mobile)).Err(); err != nil {
		return fmt.Errorf("consume otp challenge: %w", err)
	}
	return nil
}
