package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotRegistered is returned when a mobile number has no account.
	ErrNotRegistered = errors.New("mobile number not registered")
	// ErrAlreadyRegistered is returned when registering a known mobile number.
	ErrAlreadyRegistered = errors.New("mobile number already registered")
)

// User represents a registered account on the stub backend.
type User struct {
	ID        string
	Mobile    string
	Name      string
	Role      string
	CreatedAt time.Time
}

// Profile converts the stored account into the wire profile shape.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Mobile: u.Mobile, Role: u.Role}
}

// Repository persists registered users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByMobile(ctx context.Context, mobile string) (User, error)
}
