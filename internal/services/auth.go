package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
	"github.com/AnshRaj112/visited-regions-backend/pkg/utils"
)

// UserRepository is the persistence the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type SignUpInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Auth is the authentication collaborator: credentials, sessions, sign-out.
type Auth struct {
	users    UserRepository
	sessions SessionStore
	log      logger.Logger
}

func NewAuth(users UserRepository, sessions SessionStore, log logger.Logger) *Auth {
	return &Auth{users: users, sessions: sessions, log: log}
}

// SignUp registers a new, non-admin user.
func (a *Auth) SignUp(ctx context.Context, in SignUpInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.users.Create(ctx, models.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return models.User{}, fmt.Errorf("an account with this email already exists: %w", ErrConflict)
	case err != nil:
		return models.User{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return user, nil
}

// SignIn verifies credentials and issues a session token.
func (a *Auth) SignIn(ctx context.Context, in SignInInput) (string, models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return "", models.User{}, err
	}

	user, err := a.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return "", models.User{}, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	ok, err := utils.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil || !ok {
		return "", models.User{}, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	}

	token, err := a.sessions.Create(ctx, models.Session{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return "", models.User{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return token, user, nil
}

// SignOut discards the session behind token.
func (a *Auth) SignOut(ctx context.Context, token string) error {
	if err := a.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// CurrentSession resolves a token. It returns nil, nil for anonymous callers.
func (a *Auth) CurrentSession(ctx context.Context, token string) (*models.Session, error) {
	sess, err := a.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return sess, nil
}

// Me loads the signed-in user's profile.
func (a *Auth) Me(ctx context.Context, sess *models.Session) (models.User, error) {
	if sess == nil {
		return models.User{}, ErrUnauthorized
	}
	user, err := a.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrUnauthorized
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return user, nil
}
