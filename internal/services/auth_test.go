package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/services/servicetest"
)

func newTestAuth() (*Auth, *servicetest.Sessions) {
	sessions := servicetest.NewSessions()
	return NewAuth(servicetest.NewUsers(), sessions, logger.Nop()), sessions
}

func TestSignUpAndSignIn(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	user, err := auth.SignUp(ctx, SignUpInput{Name: " Ana ", Email: " Ana@Example.MK ", Password: "secret1"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Name != "Ana" || user.Email != "ana@example.mk" || user.IsAdmin {
		t.Errorf("SignUp() = %+v", user)
	}
	if user.PasswordHash == "secret1" || user.PasswordHash == "" {
		t.Error("password stored in clear")
	}

	token, signedIn, err := auth.SignIn(ctx, SignInInput{Email: "ANA@example.mk", Password: "secret1"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if token == "" || signedIn.ID != user.ID {
		t.Errorf("SignIn() = %q, %+v", token, signedIn)
	}

	sess, err := auth.CurrentSession(ctx, token)
	if err != nil || sess == nil || sess.UserID != user.ID {
		t.Fatalf("CurrentSession() = %+v, %v", sess, err)
	}
	me, err := auth.Me(ctx, sess)
	if err != nil || me.Email != "ana@example.mk" {
		t.Errorf("Me() = %+v, %v", me, err)
	}

	if err := auth.SignOut(ctx, token); err != nil {
		t.Fatal(err)
	}
	if sess, _ := auth.CurrentSession(ctx, token); sess != nil {
		t.Error("session still valid after SignOut")
	}
}

func TestSignUpRejects(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()
	if _, err := auth.SignUp(ctx, SignUpInput{Name: "Ana", Email: "ana@example.mk", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	if _, err := auth.SignUp(ctx, SignUpInput{Name: "Other", Email: "ANA@example.mk", Password: "secret2"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate SignUp() error = %v, want ErrConflict", err)
	}

	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"short name", SignUpInput{Name: "A", Email: "a@b.mk", Password: "secret1"}, "name"},
		{"bad email", SignUpInput{Name: "Ana", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", SignUpInput{Name: "Ana", Email: "a@b.mk", Password: "12345"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.SignUp(ctx, tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("SignUp() error = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", verr.Fields, tt.field)
			}
		})
	}
}

func TestSignInFailures(t *testing.T) {
	auth, sessions := newTestAuth()
	ctx := context.Background()
	if _, err := auth.SignUp(ctx, SignUpInput{Name: "Ana", Email: "ana@example.mk", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	for _, in := range []SignInInput{
		{Email: "ana@example.mk", Password: "wrong"},
		{Email: "nobody@example.mk", Password: "secret1"},
	} {
		if _, _, err := auth.SignIn(ctx, in); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("SignIn(%s) error = %v, want ErrUnauthorized", in.Email, err)
		}
	}

	sessions.Err = errors.New("redis down")
	if _, _, err := auth.SignIn(ctx, SignInInput{Email: "ana@example.mk", Password: "secret1"}); !errors.Is(err, ErrStore) {
		t.Errorf("SignIn() with broken session store error = %v, want ErrStore", err)
	}
}

func TestSignInReplacesPreviousSession(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()
	if _, err := auth.SignUp(ctx, SignUpInput{Name: "Ana", Email: "ana@example.mk", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}
	in := SignInInput{Email: "ana@example.mk", Password: "secret1"}
	first, _, _ := auth.SignIn(ctx, in)
	second, _, _ := auth.SignIn(ctx, in)

	if sess, _ := auth.CurrentSession(ctx, first); sess != nil {
		t.Error("first session still valid after second sign-in")
	}
	if sess, _ := auth.CurrentSession(ctx, second); sess == nil {
		t.Error("second session not valid")
	}
}

func TestMeRequiresSession(t *testing.T) {
	auth, _ := newTestAuth()
	if _, err := auth.Me(context.Background(), nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Me(nil) error = %v", err)
	}
}
