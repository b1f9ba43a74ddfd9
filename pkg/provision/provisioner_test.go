package provision_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/pkg/provision"
	"github.com/camarasaas/portal/pkg/registry"
	"github.com/camarasaas/portal/pkg/tenant"
	"github.com/camarasaas/portal/pkg/validator"
)

var testConfig = provision.Config{
	AppScheme: "https",
	AppDomain: "portal.gov.br",
	ResetPath: "/password/reset",
	DBPrefix:  "tenant_",
	AdminName: "Administrador",
	AdminRole: "admin",
}

func cmxRequest() provision.Request {
	return provision.Request{
		Name:       "Câmara X",
		RoutingKey: "cmx",
		AdminEmail: "admin@cmx.gov",
		TaxID:      "11.222.333/0001-81",
	}
}

// scopeTask records the database seen by each activation.
type scopeTask struct{ w *world }

func (s scopeTask) Activate(_ context.Context, _ *tenant.Scope, t *tenant.Tenant) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	s.w.log("activate:" + t.Database)
	return nil
}

func (s scopeTask) Deactivate(context.Context, *tenant.Scope) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	s.w.log("deactivate")
	return nil
}

func newProvisioner(w *world) *provision.Provisioner {
	sw := tenant.NewSwitcher([]tenant.Task{scopeTask{w}})
	return provision.New(w.deps(sw), testConfig)
}

func TestProvision(t *testing.T) {
	t.Parallel()

	t.Run("creates a ready tenant and sends one invitation", func(t *testing.T) {
		t.Parallel()

		w := newWorld()
		got, err := newProvisioner(w).Provision(context.Background(), cmxRequest())
		require.NoError(t, err)

		assert.Equal(t, "cmx", got.RoutingKey)
		assert.Equal(t, "tenant_cmx", got.Database)
		assert.Equal(t, "11222333000181", got.TaxID)
		assert.True(t, w.databases["tenant_cmx"])
		assert.Contains(t, w.tenants, "cmx")

		adminID, ok := w.users["tenant_cmx"]["admin@cmx.gov"]
		require.True(t, ok, "administrator created in the tenant database")
		assert.Equal(t, []string{"admin"}, w.roles[adminID])

		require.Len(t, w.sent, 1)
		msg := w.sent[0]
		assert.Equal(t, "admin@cmx.gov", msg.To)

		link := msg.Text[strings.Index(msg.Text, "https://"):]
		u, err := url.Parse(strings.TrimSpace(link))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u.Host, "cmx."), "link host %s", u.Host)
		assert.Equal(t, "/password/reset", u.Path)
		assert.Equal(t, "tok-admin@cmx.gov", u.Query().Get("token"))

		assert.Equal(t, []string{
			"registry:create", "db:create", "activate:tenant_cmx",
			"migrate:tenant_cmx", "seed", "deactivate",
		}, w.events)
		assert.Equal(t, []string{"cmx"}, w.lookups)
	})

	t.Run("duplicate routing key creates nothing", func(t *testing.T) {
		t.Parallel()

		w := newWorld(&tenant.Tenant{ID: uuid.New(), RoutingKey: "cmsm", Database: "tenant_cmsm", TaxID: "99888777000161"})
		req := cmxRequest()
		req.RoutingKey = "CMSM"

		_, err := newProvisioner(w).Provision(context.Background(), req)
		require.ErrorIs(t, err, registry.ErrDuplicateRoutingKey)
		assert.Empty(t, w.events)
		assert.Len(t, w.databases, 1)
		assert.Empty(t, w.sent)
	})

	t.Run("duplicate tax id creates nothing", func(t *testing.T) {
		t.Parallel()

		w := newWorld(&tenant.Tenant{ID: uuid.New(), RoutingKey: "cmsm", Database: "tenant_cmsm", TaxID: "11222333000181"})
		_, err := newProvisioner(w).Provision(context.Background(), cmxRequest())
		require.ErrorIs(t, err, registry.ErrDuplicateTaxID)
		assert.Empty(t, w.events)
	})

	t.Run("invalid input is rejected before any side effect", func(t *testing.T) {
		t.Parallel()

		w := newWorld()
		_, err := newProvisioner(w).Provision(context.Background(), provision.Request{
			Name: " ", RoutingKey: "c_x", AdminEmail: "nope", TaxID: "123",
		})
		require.Error(t, err)
		errs := validator.ExtractValidationErrors(err)
		assert.ElementsMatch(t, []string{"name", "routing_key", "admin_email", "tax_id"}, errs.Fields())
		assert.Empty(t, w.events)
	})

	t.Run("migration failure leaves no database and no row", func(t *testing.T) {
		t.Parallel()

		w := newWorld()
		w.failMigrate = errors.New("syntax error at or near")

		_, err := newProvisioner(w).Provision(context.Background(), cmxRequest())
		require.ErrorIs(t, err, provision.ErrProvisioningStep)
		assert.ErrorIs(t, err, w.failMigrate)

		var stepErr *provision.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, provision.StepMigrate, stepErr.Step)
		assert.NoError(t, stepErr.Rollback)

		assert.NotContains(t, w.databases, "tenant_cmx")
		assert.NotContains(t, w.tenants, "cmx")
		assert.Equal(t, []string{
			"registry:create", "db:create", "activate:tenant_cmx", "migrate:tenant_cmx",
			"deactivate", "db:drop", "registry:delete",
		}, w.events)
		assert.Empty(t, w.sent)
		assert.Empty(t, w.lookups)
	})

	t.Run("rollback failure is reported with the original error", func(t *testing.T) {
		t.Parallel()

		w := newWorld()
		w.failSend = errors.New("postmark unavailable")
		w.failDrop = errors.New("database is being accessed by other users")

		_, err := newProvisioner(w).Provision(context.Background(), cmxRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, w.failSend)
		assert.ErrorIs(t, err, w.failDrop)

		var stepErr *provision.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, provision.StepSendInvitation, stepErr.Step)
		assert.ErrorIs(t, stepErr.Rollback, w.failDrop)
		assert.NotContains(t, w.tenants, "cmx", "row is deleted even when the drop fails")
	})

	t.Run("registry failure is a step error", func(t *testing.T) {
		t.Parallel()

		w := newWorld()
		w.failCreate = errors.New("connection reset")

		_, err := newProvisioner(w).Provision(context.Background(), cmxRequest())
		var stepErr *provision.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, provision.StepRegister, stepErr.Step)
		assert.Empty(t, w.databases)
	})
}

func TestResetLink(t *testing.T) {
	t.Parallel()

	cmx := &tenant.Tenant{RoutingKey: "cmx", AdminEmail: "admin@cmx.gov"}

	p := provision.New(provision.Deps{}, testConfig)
	assert.Equal(t, "https://cmx.portal.gov.br/password/reset?email=admin%40cmx.gov&token=abc", p.ResetLink(cmx, "abc"))

	cfg := testConfig
	cfg.AppScheme, cfg.AppDomain, cfg.AppPort = "http", "camaras.test", "8080"
	p = provision.New(provision.Deps{}, cfg)
	assert.Equal(t, "http://cmx.camaras.test:8080/password/reset?email=admin%40cmx.gov&token=abc", p.ResetLink(cmx, "abc"))

	cfg.AppPort = "80"
	p = provision.New(provision.Deps{}, cfg)
	assert.True(t, strings.HasPrefix(p.ResetLink(cmx, "abc"), "http://cmx.camaras.test/"))
}

func TestDeleteAndUpdateSettings(t *testing.T) {
	t.Parallel()

	t.Run("delete drops database and row", func(t *testing.T) {
		t.Parallel()

		w := newWorld(&tenant.Tenant{ID: uuid.New(), RoutingKey: "cmsm", Database: "tenant_cmsm"})
		require.NoError(t, newProvisioner(w).Delete(context.Background(), "CMSM"))

		assert.Empty(t, w.databases)
		assert.Empty(t, w.tenants)
		assert.Equal(t, []string{"cmsm"}, w.lookups)
		assert.Equal(t, []string{"cmsm"}, w.settings)
	})

	t.Run("delete unknown tenant", func(t *testing.T) {
		t.Parallel()

		w := newWorld()
		assert.ErrorIs(t, newProvisioner(w).Delete(context.Background(), "nope"), tenant.ErrTenantNotFound)
		assert.ErrorIs(t, newProvisioner(w).Delete(context.Background(), "bad_key"), tenant.ErrTenantNotFound)
		assert.Empty(t, w.events)
	})

	t.Run("update settings invalidates caches", func(t *testing.T) {
		t.Parallel()

		w := newWorld(&tenant.Tenant{ID: uuid.New(), RoutingKey: "cmsm", Database: "tenant_cmsm"})
		got, err := newProvisioner(w).UpdateSettings(context.Background(), "cmsm", tenant.Settings{"theme": "green"})
		require.NoError(t, err)
		assert.Equal(t, "green", got.Settings["theme"])
		assert.Equal(t, []string{"cmsm"}, w.lookups)
		assert.Equal(t, []string{"cmsm"}, w.settings)
	})
}
