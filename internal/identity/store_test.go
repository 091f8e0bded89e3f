package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/apperr"
	"rollcall/internal/identity"
	"rollcall/internal/store/memstore"
)

func newStore() *identity.Store {
	return identity.NewStore(memstore.New(), bcrypt.MinCost, nil)
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	created, err := s.CreateUser(ctx, "  alice ", "s3cret")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.Username != "alice" {
		t.Errorf("username = %q, want trimmed", created.Username)
	}
	if created.PasswordHash == "s3cret" || created.PasswordHash == "" {
		t.Errorf("password stored unhashed: %q", created.PasswordHash)
	}

	got, err := s.Authenticate(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("Authenticate id = %s, want %s", got.ID, created.ID)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	if _, err := s.CreateUser(ctx, "alice", "pw"); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateUser(ctx, "alice", "other")
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) || ce.Reason != "Username already taken" {
		t.Fatalf("duplicate CreateUser = %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newStore()
	tests := []struct {
		name, username, password string
	}{
		{"blank username", "   ", "pw"},
		{"empty password", "bob", ""},
		{"long username", strings.Repeat("u", 151), "pw"},
		{"long password", "bob", strings.Repeat("p", 73)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUser(context.Background(), tt.username, tt.password)
			if !errors.Is(err, apperr.ErrInput) {
				t.Fatalf("err = %v, want input error", err)
			}
		})
	}
}

func TestAuthenticateRejects(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	if _, err := s.CreateUser(ctx, "alice", "right"); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name, username, password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "mallory", "right"},
		{"overlong password", "alice", strings.Repeat("x", 73)},
		{"overlong username", strings.Repeat("a", 151), "right"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, apperr.ErrInvalidCredentials) {
				t.Fatalf("err = %v, want invalid credentials", err)
			}
		})
	}
}

func TestAuthenticateBlankFields(t *testing.T) {
	s := newStore()
	for _, c := range [][2]string{{" ", "pw"}, {"alice", ""}} {
		if _, err := s.Authenticate(context.Background(), c[0], c[1]); !errors.Is(err, apperr.ErrInput) {
			t.Errorf("Authenticate(%q, %q) = %v, want input error", c[0], c[1], err)
		}
	}
}
