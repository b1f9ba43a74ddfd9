package provision_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/mail"
	"github.com/camarasaas/portal/pkg/provision"
	"github.com/camarasaas/portal/pkg/registry"
	"github.com/camarasaas/portal/pkg/tenant"
)

// world is an in-memory landlord plus tenant databases.
type world struct {
	mu        sync.Mutex
	events    []string
	tenants   map[string]*tenant.Tenant
	databases map[string]bool
	users     map[string]map[string]uuid.UUID // database -> email -> id
	roles     map[uuid.UUID][]string
	sent      []mail.Message
	lookups   []string
	settings  []string

	failMigrate error
	failDrop    error
	failSend    error
	failCreate  error
}

func newWorld(existing ...*tenant.Tenant) *world {
	w := &world{
		tenants:   make(map[string]*tenant.Tenant),
		databases: make(map[string]bool),
		users:     make(map[string]map[string]uuid.UUID),
		roles:     make(map[uuid.UUID][]string),
	}
	for _, t := range existing {
		w.tenants[t.RoutingKey] = t
		w.databases[t.Database] = true
	}
	return w
}

func (w *world) log(e string) {
	w.events = append(w.events, e)
}

func (w *world) deps(sw *tenant.Switcher) provision.Deps {
	return provision.Deps{
		Registry:  (*fakeRegistry)(w),
		Databases: (*fakeDatabases)(w),
		Switcher:  sw,
		Migrator:  (*fakeTenantOps)(w),
		Seeder:    (*fakeTenantOps)(w),
		Users:     (*fakeTenantOps)(w),
		Roles:     (*fakeTenantOps)(w),
		Tokens:    (*fakeTenantOps)(w),
		Mailer:    (*fakeMailer)(w),
		Lookups:   (*fakeCaches)(w),
		Settings:  (*fakeSettings)(w),
	}
}

type fakeRegistry world

func (r *fakeRegistry) FindByRoutingKey(_ context.Context, key string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[key]; ok {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *fakeRegistry) ExistsRoutingKey(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tenants[key]
	return ok, nil
}

func (r *fakeRegistry) ExistsTaxID(_ context.Context, taxID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.TaxID == taxID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRegistry) Create(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	if _, ok := r.tenants[t.RoutingKey]; ok {
		return registry.ErrDuplicateRoutingKey
	}
	(*world)(r).log("registry:create")
	r.tenants[t.RoutingKey] = t
	return nil
}

func (r *fakeRegistry) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	(*world)(r).log("registry:delete")
	for k, t := range r.tenants {
		if t.ID == id {
			delete(r.tenants, k)
		}
	}
	return nil
}

func (r *fakeRegistry) UpdateSettings(_ context.Context, key string, settings tenant.Settings) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[key]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	t.Settings = settings
	return t, nil
}

type fakeDatabases world

func (d *fakeDatabases) CreateDatabase(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	(*world)(d).log("db:create")
	d.databases[name] = true
	return nil
}

func (d *fakeDatabases) DropDatabase(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	(*world)(d).log("db:drop")
	if d.failDrop != nil {
		return d.failDrop
	}
	delete(d.databases, name)
	return nil
}

// fakeTenantOps implements the steps that need an active tenant.
type fakeTenantOps world

func (o *fakeTenantOps) current(ctx context.Context) string {
	return tenant.MustFromContext(ctx).Database
}

func (o *fakeTenantOps) Migrate(ctx context.Context) error {
	db := o.current(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	(*world)(o).log("migrate:" + db)
	return o.failMigrate
}

func (o *fakeTenantOps) Seed(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	(*world)(o).log("seed")
	return nil
}

func (o *fakeTenantOps) Create(ctx context.Context, name, email, password string) (*auth.User, error) {
	db := o.current(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.users[db] == nil {
		o.users[db] = make(map[string]uuid.UUID)
	}
	id := uuid.New()
	o.users[db][email] = id
	return &auth.User{ID: id, Name: name, Email: email}, nil
}

func (o *fakeTenantOps) AssignRole(_ context.Context, userID uuid.UUID, role string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.roles[userID] = append(o.roles[userID], role)
	return nil
}

func (o *fakeTenantOps) CreateToken(_ context.Context, email string) (string, error) {
	return "tok-" + email, nil
}

type fakeMailer world

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend != nil {
		return m.failSend
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeCaches world

func (c *fakeCaches) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups = append(c.lookups, key)
}

type fakeSettings world

func (s *fakeSettings) Invalidate(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = append(s.settings, t.RoutingKey)
	return nil
}
