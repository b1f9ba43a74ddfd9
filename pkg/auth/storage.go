package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camarasaas/portal/pkg/pg"
)

// Storage persists users and reset tokens for the selection current in ctx.
type Storage interface {
	CreateUser(ctx context.Context, user *User, hash []byte) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error

	SaveResetToken(ctx context.Context, email string, hash []byte, createdAt time.Time) error
	GetResetToken(ctx context.Context, email string) (hash []byte, createdAt time.Time, err error)
	DeleteResetToken(ctx context.Context, email string) error
	DeleteResetTokensBefore(ctx context.Context, before time.Time) (int64, error)

	// ResetPassword stores the new hash and consumes the token atomically.
	ResetPassword(ctx context.Context, email string, userID uuid.UUID, hash []byte) error
}

// ConnRouter yields the connection current in ctx. *pg.Router implements it.
type ConnRouter interface {
	Current(ctx context.Context) *pgxpool.Pool
}

// PostgresStorage implements Storage on the routed connection, using the
// tables named by the current guard and broker.
type PostgresStorage struct {
	conns  ConnRouter
	guards *GuardTask
}

var _ Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(conns ConnRouter, guards *GuardTask) *PostgresStorage {
	return &PostgresStorage{conns: conns, guards: guards}
}

func (s *PostgresStorage) usersTable(ctx context.Context) string {
	return pgx.Identifier{s.guards.Current(ctx).Guard.UsersTable}.Sanitize()
}

func (s *PostgresStorage) tokensTable(ctx context.Context) string {
	return pgx.Identifier{s.guards.Current(ctx).Broker.TokensTable}.Sanitize()
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *User, hash []byte) error {
	_, err := s.conns.Current(ctx).Exec(ctx,
		`INSERT INTO `+s.usersTable(ctx)+` (id, name, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		user.ID, user.Name, user.Email, string(hash), user.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.conns.Current(ctx).QueryRow(ctx,
		`SELECT id, name, email, created_at FROM `+s.usersTable(ctx)+` WHERE email = $1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStorage, err)
	}
	return &u, nil
}

func (s *PostgresStorage) GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var hash string
	err := s.conns.Current(ctx).QueryRow(ctx,
		`SELECT password_hash FROM `+s.usersTable(ctx)+` WHERE id = $1`, userID,
	).Scan(&hash)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStorage, err)
	}
	return []byte(hash), nil
}

func (s *PostgresStorage) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error {
	return updateHash(ctx, s.conns.Current(ctx), s.usersTable(ctx), userID, hash)
}

func updateHash(ctx context.Context, conn pg.Conn, table string, userID uuid.UUID, hash []byte) error {
	tag, err := conn.Exec(ctx,
		`UPDATE `+table+` SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, string(hash))
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStorage) SaveResetToken(ctx context.Context, email string, hash []byte, createdAt time.Time) error {
	_, err := s.conns.Current(ctx).Exec(ctx,
		`INSERT INTO `+s.tokensTable(ctx)+` (email, token_hash, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET token_hash = EXCLUDED.token_hash, created_at = EXCLUDED.created_at`,
		email, string(hash), createdAt,
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *PostgresStorage) GetResetToken(ctx context.Context, email string) ([]byte, time.Time, error) {
	var (
		hash      string
		createdAt time.Time
	)
	err := s.conns.Current(ctx).QueryRow(ctx,
		`SELECT token_hash, created_at FROM `+s.tokensTable(ctx)+` WHERE email = $1`, email,
	).Scan(&hash, &createdAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, time.Time{}, ErrTokenNotFound
		}
		return nil, time.Time{}, errors.Join(ErrStorage, err)
	}
	return []byte(hash), createdAt, nil
}

func (s *PostgresStorage) DeleteResetToken(ctx context.Context, email string) error {
	if _, err := s.conns.Current(ctx).Exec(ctx, `DELETE FROM `+s.tokensTable(ctx)+` WHERE email = $1`, email); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *PostgresStorage) DeleteResetTokensBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.conns.Current(ctx).Exec(ctx, `DELETE FROM `+s.tokensTable(ctx)+` WHERE created_at < $1`, before)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) ResetPassword(ctx context.Context, email string, userID uuid.UUID, hash []byte) error {
	tx, err := s.conns.Current(ctx).Begin(ctx)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateHash(ctx, tx, s.usersTable(ctx), userID, hash); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+s.tokensTable(ctx)+` WHERE email = $1`, email); err != nil {
		return errors.Join(ErrStorage, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}
