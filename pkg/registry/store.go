// Package registry persists tenant records in the landlord database.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camarasaas/portal/pkg/pg"
	"github.com/camarasaas/portal/pkg/tenant"
)

const tenantColumns = `id, name, routing_key, database_name, admin_email, tax_id, settings, created_at, updated_at`

// Store reads and writes the tenants table through the landlord connection.
// It implements tenant.Registry.
type Store struct {
	conn pg.Conn
	now  func() time.Time
}

var _ tenant.Registry = (*Store)(nil)

// NewStore creates a store over the landlord connection. Passing the router's
// landlord pool keeps registry traffic off tenant databases.
func NewStore(conn pg.Conn) *Store {
	return &Store{conn: conn, now: time.Now}
}

// FindByRoutingKey returns the tenant owning key or tenant.ErrTenantNotFound.
func (s *Store) FindByRoutingKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE routing_key = $1`, key)
	t, err := scanTenant(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, errors.Join(ErrStore, err)
	}
	return t, nil
}

// List returns every tenant ordered by routing key.
func (s *Store) List(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY routing_key`)
	if err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, errors.Join(ErrStore, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	return out, nil
}

// ExistsRoutingKey reports whether key is already taken.
func (s *Store) ExistsRoutingKey(ctx context.Context, key string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE routing_key = $1)`, key)
}

// ExistsTaxID reports whether taxID is already registered.
func (s *Store) ExistsTaxID(ctx context.Context, taxID string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE tax_id = $1)`, taxID)
}

func (s *Store) exists(ctx context.Context, query, arg string) (bool, error) {
	var ok bool
	if err := s.conn.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, errors.Join(ErrStore, err)
	}
	return ok, nil
}

// Create inserts t, assigning an ID and timestamps when missing. Unique
// violations map to ErrDuplicateRoutingKey, ErrDuplicateTaxID or ErrDuplicateDatabase.
func (s *Store) Create(ctx context.Context, t *tenant.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := s.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Settings == nil {
		t.Settings = tenant.Settings{}
	}

	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return errors.Join(ErrStore, err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, t.RoutingKey, t.Database, t.AdminEmail, t.TaxID, settings, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

// Delete removes the tenant with id. Deleting a missing tenant is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

// UpdateSettings replaces the settings of the tenant owning key and returns
// the updated record.
func (s *Store) UpdateSettings(ctx context.Context, key string, settings tenant.Settings) (*tenant.Tenant, error) {
	if settings == nil {
		settings = tenant.Settings{}
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.Join(ErrStore, err)
	}

	row := s.conn.QueryRow(ctx, `
		UPDATE tenants SET settings = $2, updated_at = $3
		WHERE routing_key = $1
		RETURNING `+tenantColumns, key, raw, s.now().UTC())
	t, err := scanTenant(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, errors.Join(ErrStore, err)
	}
	return t, nil
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t   tenant.Tenant
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.RoutingKey, &t.Database, &t.AdminEmail, &t.TaxID, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Settings = tenant.Settings{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Settings); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func classify(err error) error {
	if !pg.IsDuplicateKeyError(err) {
		return errors.Join(ErrStore, err)
	}
	switch pg.ConstraintName(err) {
	case "tenants_tax_id_key":
		return errors.Join(ErrDuplicateTaxID, err)
	case "tenants_database_name_key":
		return errors.Join(ErrDuplicateDatabase, err)
	default:
		return errors.Join(ErrDuplicateRoutingKey, err)
	}
}
