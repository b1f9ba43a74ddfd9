package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/sanitizer"
	"github.com/camarasaas/portal/pkg/validator"
)

// MinPasswordLength is the shortest password accepted by Users and Broker.
const MinPasswordLength = 8

// Users manages accounts of the guard current in the context.
type Users struct {
	storage    Storage
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

type UsersOption func(*Users)

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) UsersOption {
	return func(u *Users) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			u.bcryptCost = cost
		}
	}
}

// WithUsersLogger sets a custom logger for the service.
func WithUsersLogger(l *slog.Logger) UsersOption {
	return func(u *Users) {
		if l != nil {
			u.logger = l
		}
	}
}

func NewUsers(storage Storage, opts ...UsersOption) *Users {
	u := &Users{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Create registers a user with a bcrypt-hashed password.
func (u *Users) Create(ctx context.Context, name, email, password string) (*User, error) {
	name = sanitizer.SingleLine(name)
	email = sanitizer.NormalizeEmail(email)

	if err := validator.Apply(
		validator.Required("name", name),
		validator.ValidEmail("email", email),
		validator.MinLen("password", password, MinPasswordLength),
	); err != nil {
		return nil, err
	}

	if _, err := u.storage.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{ID: uuid.New(), Name: name, Email: email, CreatedAt: u.now().UTC()}
	if err := u.storage.CreateUser(ctx, user, hash); err != nil {
		return nil, err
	}

	u.logger.InfoContext(ctx, "user created", logger.UserID(user.ID.String()), logger.Component("auth"))
	return user, nil
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return u.storage.GetUserByEmail(ctx, sanitizer.NormalizeEmail(email))
}

// SetPassword replaces the password of userID.
func (u *Users) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if err := validator.Apply(validator.MinLen("password", password, MinPasswordLength)); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return u.storage.UpdatePasswordHash(ctx, userID, hash)
}

// Authenticate verifies email and password. Every failure is reported as
// ErrInvalidCredentials so callers cannot enumerate accounts.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := u.storage.GetUserByEmail(ctx, sanitizer.NormalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	hash, err := u.storage.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
