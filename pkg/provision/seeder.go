package provision

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/camarasaas/portal/pkg/pg"
	"github.com/camarasaas/portal/pkg/rbac"
)

//go:embed seed.yaml
var defaultSeed []byte

// ServiceType is a reference service offered by a council's portal.
type ServiceType struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SeedData is the reference data inserted into every new tenant.
type SeedData struct {
	ServiceTypes []ServiceType `yaml:"service_types"`
	Roles        []rbac.Role   `yaml:"roles"`
}

// ParseSeed decodes YAML seed data.
func ParseSeed(raw []byte) (SeedData, error) {
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return SeedData{}, fmt.Errorf("parse seed: %w", err)
	}
	for _, st := range data.ServiceTypes {
		if st.Code == "" || st.Name == "" {
			return SeedData{}, errors.New("parse seed: service type requires code and name")
		}
	}
	for _, r := range data.Roles {
		if r.Name == "" {
			return SeedData{}, errors.New("parse seed: role requires a name")
		}
	}
	return data, nil
}

// DefaultSeed returns the embedded seed data.
func DefaultSeed() SeedData {
	data, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(err)
	}
	return data
}

// RoleCreator creates roles on a given connection. *rbac.Store implements it.
type RoleCreator interface {
	CreateRoleWith(ctx context.Context, conn pg.Conn, role rbac.Role) error
}

// ConnSource yields the pool routed for ctx. *pg.Router implements it.
type ConnSource interface {
	Current(ctx context.Context) *pgxpool.Pool
}

// Seeder inserts SeedData into the database current in ctx.
type Seeder struct {
	conns ConnSource
	roles RoleCreator
	data  SeedData
}

func NewSeeder(conns ConnSource, roles RoleCreator, data SeedData) *Seeder {
	return &Seeder{conns: conns, roles: roles, data: data}
}

// Seed inserts every service type and role in a single transaction.
func (s *Seeder) Seed(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.conns.Current(ctx), func(tx pgx.Tx) error {
		for _, st := range s.data.ServiceTypes {
			if _, err := tx.Exec(ctx,
				`INSERT INTO service_types (id, code, name, description) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (code) DO NOTHING`,
				uuid.New(), st.Code, st.Name, st.Description,
			); err != nil {
				return fmt.Errorf("seed service type %s: %w", st.Code, err)
			}
		}
		for _, r := range s.data.Roles {
			if err := s.roles.CreateRoleWith(ctx, tx, r); err != nil {
				return fmt.Errorf("seed role %s: %w", r.Name, err)
			}
		}
		return nil
	})
}
