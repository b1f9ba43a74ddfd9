package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/sanitizer"
	"github.com/camarasaas/portal/pkg/validator"
)

const tokenBytes = 32

// Broker issues and consumes password reset tokens for the broker current in
// the context.
type Broker struct {
	storage    Storage
	guards     *GuardTask
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

type BrokerOption func(*Broker)

// WithBrokerBcryptCost sets the cost used to hash tokens and new passwords.
func WithBrokerBcryptCost(cost int) BrokerOption {
	return func(b *Broker) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			b.bcryptCost = cost
		}
	}
}

// WithBrokerLogger sets a custom logger for the broker.
func WithBrokerLogger(l *slog.Logger) BrokerOption {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBroker(storage Storage, guards *GuardTask, opts ...BrokerOption) *Broker {
	b := &Broker{
		storage:    storage,
		guards:     guards,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateToken issues a reset token for email, replacing any earlier one.
// The plain token is returned once; only its hash is stored.
func (b *Broker) CreateToken(ctx context.Context, email string) (string, error) {
	email = sanitizer.NormalizeEmail(email)
	if _, err := b.storage.GetUserByEmail(ctx, email); err != nil {
		return "", err
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), b.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	if err := b.storage.SaveResetToken(ctx, email, hash, b.now().UTC()); err != nil {
		return "", err
	}

	b.logger.InfoContext(ctx, "password reset token issued",
		slog.String("broker", b.guards.Current(ctx).Broker.Name),
		logger.Component("auth"),
	)
	return token, nil
}

// Reset validates token for email and sets newPassword. Expired tokens are
// deleted and reported as ErrTokenExpired.
func (b *Broker) Reset(ctx context.Context, email, token, newPassword string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.MinLen("password", newPassword, MinPasswordLength)); err != nil {
		return err
	}

	hash, createdAt, err := b.storage.GetResetToken(ctx, email)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	if b.expired(ctx, createdAt) {
		if err := b.storage.DeleteResetToken(ctx, email); err != nil {
			b.logger.ErrorContext(ctx, "failed to delete expired token", logger.Error(err), logger.Component("auth"))
		}
		return ErrTokenExpired
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
		return ErrTokenInvalid
	}

	user, err := b.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), b.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return b.storage.ResetPassword(ctx, email, user.ID, passwordHash)
}

// PurgeExpired removes tokens older than the current broker TTL.
func (b *Broker) PurgeExpired(ctx context.Context) (int64, error) {
	ttl := b.guards.Current(ctx).Broker.TTL
	if ttl <= 0 {
		return 0, nil
	}
	return b.storage.DeleteResetTokensBefore(ctx, b.now().Add(-ttl))
}

// TTL reports the lifetime of tokens issued in ctx.
func (b *Broker) TTL(ctx context.Context) time.Duration {
	return b.guards.Current(ctx).Broker.TTL
}

func (b *Broker) expired(ctx context.Context, createdAt time.Time) bool {
	ttl := b.guards.Current(ctx).Broker.TTL
	return ttl > 0 && b.now().After(createdAt.Add(ttl))
}
