package provision

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/mail"
	"github.com/camarasaas/portal/pkg/registry"
	"github.com/camarasaas/portal/pkg/sanitizer"
	"github.com/camarasaas/portal/pkg/tenant"
	"github.com/camarasaas/portal/pkg/validator"
)

// Registry is the landlord tenant store. *registry.Store implements it.
type Registry interface {
	tenant.Registry
	ExistsRoutingKey(ctx context.Context, key string) (bool, error)
	ExistsTaxID(ctx context.Context, taxID string) (bool, error)
	Create(ctx context.Context, t *tenant.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateSettings(ctx context.Context, key string, settings tenant.Settings) (*tenant.Tenant, error)
}

// Databases creates and drops physical databases. *pg.Admin implements it.
type Databases interface {
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
}

// Switcher activates a tenant for the provisioning run. *tenant.Switcher implements it.
type Switcher interface {
	Activate(ctx context.Context, t *tenant.Tenant) (context.Context, error)
	Deactivate(ctx context.Context) error
}

type Migrator interface {
	Migrate(ctx context.Context) error
}

type Seed interface {
	Seed(ctx context.Context) error
}

type Users interface {
	Create(ctx context.Context, name, email, password string) (*auth.User, error)
}

type Roles interface {
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
}

type Tokens interface {
	CreateToken(ctx context.Context, email string) (string, error)
}

// LookupCache drops cached routing key lookups. *tenant.HostResolver implements it.
type LookupCache interface {
	Invalidate(ctx context.Context, routingKey string)
}

// SettingsCache drops a tenant's cached settings. *cache.SettingsTask implements it.
type SettingsCache interface {
	Invalidate(ctx context.Context, t *tenant.Tenant) error
}

// Deps are the collaborators a Provisioner drives.
type Deps struct {
	Registry  Registry
	Databases Databases
	Switcher  Switcher
	Migrator  Migrator
	Seeder    Seed
	Users     Users
	Roles     Roles
	Tokens    Tokens
	Mailer    mail.Sender
	Lookups   LookupCache
	Settings  SettingsCache
}

// Request holds the administrative inputs of a new tenant.
type Request struct {
	Name       string `json:"name"`
	RoutingKey string `json:"routing_key"`
	AdminEmail string `json:"admin_email"`
	TaxID      string `json:"tax_id"`
}

// Provisioner runs the tenant lifecycle workflows.
type Provisioner struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

type Option func(*Provisioner)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(deps Deps, cfg Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		deps:   deps,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// normalize cleans req and validates it without touching any store.
func normalize(req Request) (Request, error) {
	req.Name = sanitizer.SingleLine(req.Name)
	req.AdminEmail = sanitizer.NormalizeEmail(req.AdminEmail)
	req.TaxID = sanitizer.KeepDigits(req.TaxID)
	key, keyErr := tenant.NormalizeRoutingKey(req.RoutingKey)
	if keyErr == nil {
		req.RoutingKey = key
	}

	err := validator.Apply(
		validator.Required("name", req.Name),
		validator.MaxLen("name", req.Name, 255),
		validator.ValidRoutingKey("routing_key", req.RoutingKey),
		validator.ValidEmail("admin_email", req.AdminEmail),
		validator.ValidCNPJ("tax_id", req.TaxID),
	)
	return req, err
}

// Provision creates a fully usable tenant or leaves no trace of it.
// Duplicate routing keys and tax ids are reported before any side effect.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*tenant.Tenant, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}
	if err := p.checkUnique(ctx, req); err != nil {
		return nil, err
	}

	started := time.Now()
	t := &tenant.Tenant{
		ID:         uuid.New(),
		Name:       req.Name,
		RoutingKey: req.RoutingKey,
		Database:   tenant.DatabaseName(p.cfg.DBPrefix, req.RoutingKey),
		AdminEmail: req.AdminEmail,
		TaxID:      req.TaxID,
		Settings:   tenant.Settings{},
	}
	log := p.logger.With(logger.RoutingKey(t.RoutingKey), logger.Component("provision"))

	if err := p.deps.Registry.Create(ctx, t); err != nil {
		if errors.Is(err, registry.ErrDuplicateRoutingKey) || errors.Is(err, registry.ErrDuplicateTaxID) {
			return nil, err
		}
		return nil, &StepError{Step: StepRegister, Err: err}
	}

	var undo compensations
	undo.push("registry row", func(ctx context.Context) error {
		return p.deps.Registry.Delete(ctx, t.ID)
	})

	fail := func(step string, err error) (*tenant.Tenant, error) {
		rollback := undo.unwind(context.WithoutCancel(ctx))
		log.ErrorContext(ctx, "tenant provisioning failed", logger.Step(step), logger.Error(err), logger.Errors(rollback))
		return nil, &StepError{Step: step, Err: err, Rollback: rollback}
	}

	if err := p.deps.Databases.CreateDatabase(ctx, t.Database); err != nil {
		return fail(StepCreateDatabase, err)
	}
	undo.push("database", func(ctx context.Context) error {
		return p.deps.Databases.DropDatabase(ctx, t.Database)
	})
	log.InfoContext(ctx, "tenant database created", logger.Database(t.Database))

	tctx, err := p.deps.Switcher.Activate(ctx, t)
	if err != nil {
		return fail(StepActivate, err)
	}

	step, err := p.setup(tctx, t)
	if derr := p.deps.Switcher.Deactivate(context.WithoutCancel(tctx)); derr != nil && err == nil {
		step, err = StepDeactivate, derr
	}
	if err != nil {
		return fail(step, err)
	}

	p.deps.Lookups.Invalidate(ctx, t.RoutingKey)
	log.InfoContext(ctx, "tenant provisioned", logger.TenantID(t.ID), logger.Duration(time.Since(started)))
	return t, nil
}

func (p *Provisioner) checkUnique(ctx context.Context, req Request) error {
	taken, err := p.deps.Registry.ExistsRoutingKey(ctx, req.RoutingKey)
	if err != nil {
		return err
	}
	if taken {
		return registry.ErrDuplicateRoutingKey
	}
	taken, err = p.deps.Registry.ExistsTaxID(ctx, req.TaxID)
	if err != nil {
		return err
	}
	if taken {
		return registry.ErrDuplicateTaxID
	}
	return nil
}

// setup runs the steps that need the tenant active and reports the failed step.
func (p *Provisioner) setup(ctx context.Context, t *tenant.Tenant) (string, error) {
	if err := p.deps.Migrator.Migrate(ctx); err != nil {
		return StepMigrate, err
	}
	if err := p.deps.Seeder.Seed(ctx); err != nil {
		return StepSeed, err
	}

	admin, err := p.deps.Users.Create(ctx, p.cfg.AdminName, t.AdminEmail, rand.Text())
	if err != nil {
		return StepCreateAdmin, err
	}
	if err := p.deps.Roles.AssignRole(ctx, admin.ID, p.cfg.AdminRole); err != nil {
		return StepAssignRole, err
	}

	token, err := p.deps.Tokens.CreateToken(ctx, t.AdminEmail)
	if err != nil {
		return StepCreateToken, err
	}

	msg, err := mail.InvitationMessage(ctx, t, p.ResetLink(t, token))
	if err != nil {
		return StepSendInvitation, err
	}
	if err := p.deps.Mailer.Send(ctx, msg); err != nil {
		return StepSendInvitation, err
	}
	return "", nil
}

// ResetLink builds the password setup URL for the tenant's administrator.
func (p *Provisioner) ResetLink(t *tenant.Tenant, token string) string {
	return p.cfg.ResetURL(t, t.AdminEmail, token)
}

// ResetURL builds a password reset URL on the tenant's own subdomain.
func (c Config) ResetURL(t *tenant.Tenant, email, token string) string {
	host := t.RoutingKey + "." + c.AppDomain
	if c.AppPort != "" && !defaultPort(c.AppScheme, c.AppPort) {
		host = net.JoinHostPort(host, c.AppPort)
	}
	scheme := c.AppScheme
	if scheme == "" {
		scheme = "https"
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     c.ResetPath,
		RawQuery: url.Values{"token": {token}, "email": {email}}.Encode(),
	}
	return u.String()
}

func defaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// Delete drops the tenant's database, removes its registry row and clears
// its cached lookup and settings.
func (p *Provisioner) Delete(ctx context.Context, routingKey string) error {
	key, err := tenant.NormalizeRoutingKey(routingKey)
	if err != nil {
		return tenant.ErrTenantNotFound
	}
	t, err := p.deps.Registry.FindByRoutingKey(ctx, key)
	if err != nil {
		return err
	}

	if err := p.deps.Databases.DropDatabase(ctx, t.Database); err != nil {
		return err
	}
	if err := p.deps.Registry.Delete(ctx, t.ID); err != nil {
		return err
	}
	p.deps.Lookups.Invalidate(ctx, key)
	if err := p.deps.Settings.Invalidate(ctx, t); err != nil {
		p.logger.WarnContext(ctx, "failed to drop cached settings", logger.RoutingKey(key), logger.Error(err))
	}

	p.logger.InfoContext(ctx, "tenant deleted", logger.RoutingKey(key), logger.Database(t.Database))
	return nil
}

// UpdateSettings replaces the tenant's settings document and invalidates
// every cached copy.
func (p *Provisioner) UpdateSettings(ctx context.Context, routingKey string, settings tenant.Settings) (*tenant.Tenant, error) {
	key, err := tenant.NormalizeRoutingKey(routingKey)
	if err != nil {
		return nil, tenant.ErrTenantNotFound
	}
	if settings == nil {
		settings = tenant.Settings{}
	}

	t, err := p.deps.Registry.UpdateSettings(ctx, key, settings)
	if err != nil {
		return nil, err
	}
	p.deps.Lookups.Invalidate(ctx, key)
	if err := p.deps.Settings.Invalidate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
