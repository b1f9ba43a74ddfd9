package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camarasaas/portal/pkg/pg"
)

// Role is a named set of permission patterns.
type Role struct {
	Name        string   `yaml:"name" json:"name"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

// ConnRouter yields the landlord pool and the pool routed for ctx.
// *pg.Router implements it.
type ConnRouter interface {
	Current(ctx context.Context) *pgxpool.Pool
	Landlord() *pgxpool.Pool
}

// Store persists roles and checks permissions using the bindings current in ctx.
type Store struct {
	conns    ConnRouter
	bindings *BindingTask
}

func NewStore(conns ConnRouter, bindings *BindingTask) *Store {
	return &Store{conns: conns, bindings: bindings}
}

type tables struct {
	roles, perms, userRoles, rolePerms string
}

func (s *Store) resolve(ctx context.Context) (pg.Conn, tables) {
	b := s.bindings.Current(ctx)
	t := tables{
		roles:     pgx.Identifier{b.RolesTable}.Sanitize(),
		perms:     pgx.Identifier{b.PermissionsTable}.Sanitize(),
		userRoles: pgx.Identifier{b.UserRolesTable}.Sanitize(),
		rolePerms: pgx.Identifier{b.RolePermissionsTable}.Sanitize(),
	}
	if b.Connection == ConnectionLandlord {
		return s.conns.Landlord(), t
	}
	return s.conns.Current(ctx), t
}

// CreateRole inserts the role and its permissions in one transaction.
func (s *Store) CreateRole(ctx context.Context, role Role) error {
	conn, _ := s.resolve(ctx)
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		return s.CreateRoleWith(ctx, tx, role)
	})
}

// CreateRoleWith inserts the role on conn, which may be an open transaction.
// Permissions are created on demand.
func (s *Store) CreateRoleWith(ctx context.Context, conn pg.Conn, role Role) error {
	for _, p := range role.Permissions {
		if !ValidPermission(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPermission, p)
		}
	}
	_, t := s.resolve(ctx)

	roleID := uuid.New()
	if _, err := conn.Exec(ctx, `INSERT INTO `+t.roles+` (id, name) VALUES ($1, $2)`, roleID, role.Name); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrRoleExists
		}
		return errors.Join(ErrStorage, err)
	}

	for _, p := range Normalize(role.Permissions) {
		var permID uuid.UUID
		err := conn.QueryRow(ctx,
			`INSERT INTO `+t.perms+` (id, name) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			uuid.New(), p,
		).Scan(&permID)
		if err != nil {
			return errors.Join(ErrStorage, err)
		}
		if _, err := conn.Exec(ctx,
			`INSERT INTO `+t.rolePerms+` (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, permID,
		); err != nil {
			return errors.Join(ErrStorage, err)
		}
	}
	return nil
}

// AssignRole grants the named role to the user. Assigning twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	conn, t := s.resolve(ctx)

	var roleID uuid.UUID
	err := conn.QueryRow(ctx, `SELECT id FROM `+t.roles+` WHERE name = $1`, role).Scan(&roleID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ErrInvalidRole
		}
		return errors.Join(ErrStorage, err)
	}

	if _, err := conn.Exec(ctx,
		`INSERT INTO `+t.userRoles+` (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID,
	); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// RolesOf lists the user's role names in alphabetical order.
func (s *Store) RolesOf(ctx context.Context, userID uuid.UUID) ([]string, error) {
	conn, t := s.resolve(ctx)
	return s.collect(ctx, conn,
		`SELECT r.name FROM `+t.roles+` r
		 JOIN `+t.userRoles+` ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 ORDER BY r.name`, userID)
}

// PermissionsOf lists the permission patterns granted through the user's roles.
func (s *Store) PermissionsOf(ctx context.Context, userID uuid.UUID) ([]string, error) {
	conn, t := s.resolve(ctx)
	return s.collect(ctx, conn,
		`SELECT DISTINCT p.name FROM `+t.perms+` p
		 JOIN `+t.rolePerms+` rp ON rp.permission_id = p.id
		 JOIN `+t.userRoles+` ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = $1 ORDER BY p.name`, userID)
}

// Can reports whether any of the user's roles grants permission.
func (s *Store) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	granted, err := s.PermissionsOf(ctx, userID)
	if err != nil {
		return false, err
	}
	return Granted(granted, permission), nil
}

func (s *Store) collect(ctx context.Context, conn pg.Conn, sql string, args ...any) ([]string, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return names, nil
}
