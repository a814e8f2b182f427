package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"scribe/api/internal/store"
)

type fakeUserStore struct {
	users map[string]store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]store.User{}}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := f.users[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, name, passwordHash string) (store.User, error) {
	u := store.User{ID: "u-" + email, Email: email, Name: name, PasswordHash: passwordHash}
	f.users[email] = u
	return u, nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "ana@example.com", "correct horse", "Ana")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if user.Email != "ana@example.com" || user.Name != "Ana" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}

	signedIn, err := svc.SignIn(ctx, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if signedIn.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, signedIn.ID)
	}
}

func TestSignUpNormalizesEmail(t *testing.T) {
	fake := newFakeUserStore()
	svc := NewService(fake)

	if _, err := svc.SignUp(context.Background(), "  Ana@Example.COM ", "correct horse", "Ana"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, ok := fake.users["ana@example.com"]; !ok {
		t.Errorf("expected lowercased trimmed email, have %v", fake.users)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "", "correct horse", ""); err == nil {
		t.Error("expected error for missing email")
	}
	if _, err := svc.SignUp(ctx, "ana@example.com", "", ""); err == nil {
		t.Error("expected error for missing password")
	}
	if _, err := svc.SignUp(ctx, "ana@example.com", "short", ""); err == nil {
		t.Error("expected error for a password under 8 characters")
	}
}

func TestSignUpTakenEmail(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "ana@example.com", "correct horse", "Ana"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	_, err := svc.SignUp(ctx, "ana@example.com", "other password", "Ana Again")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "ana@example.com", "correct horse", "Ana"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	_, err := svc.SignIn(ctx, "ana@example.com", "wrong horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnknownUser(t *testing.T) {
	svc := NewService(newFakeUserStore())

	_, err := svc.SignIn(context.Background(), "nobody@example.com", "whatever1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
