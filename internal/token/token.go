// Package token issues and verifies the opaque session tokens the stub
// backend hands out after OTP verification. Tokens are compact HS256 JWTs
// built directly on the standard crypto primitives.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var b64 = base64.RawURLEncoding

var (
	// ErrInvalidToken is returned for malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the exp claim has passed.
	ErrExpiredToken = errors.New("token expired")
)

// Claims carries the verified token payload.
type Claims struct {
	UserID string
	Mobile string
	Expiry time.Time
}

// Issuer signs session tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer with the given secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user.
func (i *Issuer) Issue(userID, mobile string) (string, error) {
	now := time.Now()
	claims := map[string]any{
		"sub":    userID,
		"mobile": mobile,
		"jti":    uuid.NewString(),
		"iat":    now.Unix(),
		"exp":    now.Add(i.ttl).Unix(),
	}
	return signHS256(claims, i.secret)
}

// Verify checks the signature and expiry and returns the claims.
func (i *Issuer) Verify(tok string) (Claims, error) {
	raw, err := parseAndVerifyHS256(tok, i.secret)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	expFloat, _ := raw["exp"].(float64)
	exp := time.Unix(int64(expFloat), 0)
	if !exp.After(time.Now()) {
		return Claims{}, ErrExpiredToken
	}
	sub, _ := raw["sub"].(string)
	mobile, _ := raw["mobile"].(string)
	return Claims{UserID: sub, Mobile: mobile, Expiry: exp}, nil
}

func signHS256(claims map[string]any, secret []byte) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	h, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	c, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := b64.EncodeToString(h) + "." + b64.EncodeToString(c)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(unsigned))
	return unsigned + "." + b64.EncodeToString(mac.Sum(nil)), nil
}

func parseAndVerifyHS256(tok string, secret []byte) (map[string]any, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token format")
	}
	unsigned := parts[0] + "." + parts[1]
	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, errors.New("invalid signature encoding")
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(unsigned))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, errors.New("signature mismatch")
	}
	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, errors.New("invalid payload encoding")
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.New("invalid claims json")
	}
	return claims, nil
}
