package services_test

import (
	"testing"
	"time"

	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/types"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-for-auth"

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	auth := services.NewAuthService(db, testSecret, time.Hour)

	user, err := auth.Register(services.RegisterInput{
		Email:    "Ada@Example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Expected lowercased email, got %s", user.Email)
	}
	if user.PasswordHash == "correct horse" {
		t.Error("Password must be hashed")
	}

	token, loggedIn, err := auth.Login(services.LoginInput{
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Error("Login returned a different user")
	}

	// The token subject is the user id.
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(tk *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("Token failed to parse: %v", err)
	}
	sub, _ := parsed.Claims.GetSubject()
	if sub != user.ID {
		t.Errorf("Expected subject %s, got %s", user.ID, sub)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	auth := services.NewAuthService(db, testSecret, time.Hour)

	if _, err := auth.Register(services.RegisterInput{Email: "nope", Password: "long enough"}); err == nil {
		t.Error("Expected error for invalid email")
	}
	if _, err := auth.Register(services.RegisterInput{Email: "a@b.com", Password: "short"}); err == nil {
		t.Error("Expected error for short password")
	}

	if _, err := auth.Register(services.RegisterInput{Email: "a@b.com", Password: "long enough"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, err := auth.Register(services.RegisterInput{Email: "A@B.com", Password: "long enough"})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 409 {
		t.Errorf("Expected 409 for duplicate email, got %v", err)
	}
}

// Unknown email and wrong password must be indistinguishable.
func TestLoginErrorsAreUniform(t *testing.T) {
	db := setupTestDB(t)
	auth := services.NewAuthService(db, testSecret, time.Hour)

	if _, err := auth.Register(services.RegisterInput{Email: "a@b.com", Password: "long enough"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, errUnknown := auth.Login(services.LoginInput{Email: "missing@b.com", Password: "whatever1"})
	_, _, errWrong := auth.Login(services.LoginInput{Email: "a@b.com", Password: "wrong password"})

	if errUnknown == nil || errWrong == nil {
		t.Fatal("Expected both logins to fail")
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("Login errors differ: %q vs %q", errUnknown.Error(), errWrong.Error())
	}
}

func TestGetUser(t *testing.T) {
	db := setupTestDB(t)
	auth := services.NewAuthService(db, testSecret, time.Hour)

	user, err := auth.Register(services.RegisterInput{Email: "a@b.com", Password: "long enough"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := auth.GetUser(user.ID)
	if err != nil || got.Email != "a@b.com" {
		t.Errorf("GetUser failed: %v", err)
	}

	_, err = auth.GetUser("00000000-0000-0000-0000-000000000000")
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 404 {
		t.Errorf("Expected 404 for unknown user, got %v", err)
	}
}
