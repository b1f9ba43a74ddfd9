package pg

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var databaseNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Execer is the subset of Conn needed for database administration.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolCloser forgets cached pools of a database. Router implements it.
type PoolCloser interface {
	Close(database string)
}

// Admin creates and drops physical tenant databases through the landlord connection.
type Admin struct {
	conn  Execer
	pools PoolCloser
}

// NewAdmin creates an Admin. pools may be nil when nothing caches tenant pools.
func NewAdmin(conn Execer, pools PoolCloser) *Admin {
	return &Admin{conn: conn, pools: pools}
}

// CreateDatabase creates database name. It returns ErrDatabaseExists when
// the name is already taken.
func (a *Admin) CreateDatabase(ctx context.Context, name string) error {
	if !databaseNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}
	// CREATE DATABASE cannot take bind parameters.
	if _, err := a.conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		if IsDuplicateDatabaseError(err) {
			return errors.Join(ErrDatabaseExists, err)
		}
		return errors.Join(ErrFailedToCreateDatabase, err)
	}
	return nil
}

// DropDatabase closes any routed pool for name and drops the database,
// terminating remaining sessions. Dropping a missing database is not an error.
func (a *Admin) DropDatabase(ctx context.Context, name string) error {
	if !databaseNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}
	if a.pools != nil {
		a.pools.Close(name)
	}
	if _, err := a.conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()+" WITH (FORCE)"); err != nil {
		return errors.Join(ErrFailedToDropDatabase, err)
	}
	return nil
}

// DatabaseExists reports whether a database called name exists.
func (a *Admin) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	return exists, err
}
