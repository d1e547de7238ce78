package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func registerInput() RegisterInput {
	return RegisterInput{
		Email:            "User@Example.com",
		Username:         "tester",
		Password:         "supersecret",
		Gender:           "male",
		PreferenceTarget: "female",
	}
}

func TestUserService_Register(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), users, nil)

	user, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("email no normalizado: %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "supersecret" {
		t.Fatalf("la contrasena deberia almacenarse hasheada")
	}
	if user.ID == "" {
		t.Fatalf("esperaba id asignado")
	}
	if _, ok := users.users[user.ID]; !ok {
		t.Fatalf("el usuario no fue persistido")
	}
}

func TestUserService_RegisterDerivesUsername(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newFakeUserRepo(), nil)

	input := registerInput()
	input.Username = ""
	user, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "user" {
		t.Fatalf("username derivado = %q, esperaba %q", user.Username, "user")
	}
}

func TestUserService_RegisterRejectsDuplicates(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), users, nil)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("primer registro: %v", err)
	}

	if _, err := svc.Register(context.Background(), registerInput()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("esperaba ErrEmailTaken, obtuve %v", err)
	}

	input := registerInput()
	input.Email = "other@example.com"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("esperaba ErrUsernameTaken, obtuve %v", err)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newFakeUserRepo(), nil)

	input := registerInput()
	input.Email = "not-an-email"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("esperaba ErrInvalidEmail, obtuve %v", err)
	}

	input = registerInput()
	input.Password = "short"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("esperaba ErrWeakPassword, obtuve %v", err)
	}
}

func TestUserService_Authenticate(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), users, nil)

	registered, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(context.Background(), "user@example.com", "supersecret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("usuario inesperado: %q", user.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "user@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperaba ErrInvalidCredentials, obtuve %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "supersecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperaba ErrInvalidCredentials para email desconocido, obtuve %v", err)
	}
}

func TestUserService_AuthenticateRateLimited(t *testing.T) {
	users := newFakeUserRepo()
	limiter := NewLoginRateLimiter(time.Minute, 2)
	svc := NewUserService(zap.NewNop(), users, limiter)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Authenticate(context.Background(), "user@example.com", "supersecret"); err != nil {
			t.Fatalf("intento %d: %v", i, err)
		}
	}
	if _, err := svc.Authenticate(context.Background(), "user@example.com", "supersecret"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("esperaba ErrRateLimited, obtuve %v", err)
	}
}

func TestLoginRateLimiter_WindowReset(t *testing.T) {
	limiter := NewLoginRateLimiter(10*time.Millisecond, 1)

	if !limiter.Allow("key") {
		t.Fatalf("primer intento deberia pasar")
	}
	if limiter.Allow("key") {
		t.Fatalf("segundo intento dentro de la ventana deberia bloquearse")
	}
	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow("key") {
		t.Fatalf("intento tras expirar la ventana deberia pasar")
	}
}
