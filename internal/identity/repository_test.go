package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepositoryRoundtrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	user := User{ID: "u1", Mobile: "9876543210", Name: "Asha", Role: "user", CreatedAt: time.Now()}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindByMobile(ctx, "9876543210")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "u1" || got.Name != "Asha" {
		t.Fatalf("got = %+v", got)
	}
}

func TestMemoryRepositoryNotRegistered(t *testing.T) {
	repo := NewMemoryRepository()
	if _, err := repo.FindByMobile(context.Background(), "9876543210"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestMemoryRepositoryRejectsDuplicates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, User{ID: "u1", Mobile: "9876543210"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, User{ID: "u2", Mobile: "9876543210"}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestUserProfileConversion(t *testing.T) {
	u := User{ID: "u1", Mobile: "9876543210", Name: "Asha", Role: "admin"}
	p := u.Profile()
	if p.ID != "u1" || p.Mobile != "9876543210" || p.Name != "Asha" || p.Role != "admin" {
		t.Fatalf("profile = %+v", p)
	}
}
