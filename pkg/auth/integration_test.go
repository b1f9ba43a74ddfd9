package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/camarasaas/portal/internal/db"
	"github.com/camarasaas/portal/internal/testdb"
	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/pg"
	"github.com/camarasaas/portal/pkg/tenant"
)

func TestIntegrationPostgresStorage(t *testing.T) {
	landlord := testdb.Landlord(t)
	ctx := context.Background()

	router := pg.NewRouter(landlord)
	t.Cleanup(router.CloseAll)
	admin := pg.NewAdmin(landlord, router)
	require.NoError(t, admin.CreateDatabase(ctx, "tenant_cmx"))

	guards := auth.NewGuardTask(auth.LandlordSelection(time.Hour), auth.TenantSelection(time.Hour))
	storage := auth.NewPostgresStorage(router, guards)
	users := auth.NewUsers(storage, auth.WithBcryptCost(bcrypt.MinCost))
	broker := auth.NewBroker(storage, guards, auth.WithBrokerBcryptCost(bcrypt.MinCost))
	migrator := pg.NewTenantMigrator(router, db.Tenant(), "schema_migrations", testdb.Discard())
	sw := tenant.NewSwitcher([]tenant.Task{router, guards})
	cmx := &tenant.Tenant{RoutingKey: "cmx", Database: "tenant_cmx"}

	// A landlord account with the same email must stay invisible to the tenant.
	_, err := users.Create(ctx, "Operador", "admin@cmx.gov", "landlord-pass")
	require.NoError(t, err)

	err = sw.Run(ctx, cmx, func(ctx context.Context) error {
		require.NoError(t, migrator.Migrate(ctx))

		user, err := users.Create(ctx, "Administrador", "admin@cmx.gov", "initial-pass")
		require.NoError(t, err)

		token, err := broker.CreateToken(ctx, "admin@cmx.gov")
		require.NoError(t, err)
		require.NoError(t, broker.Reset(ctx, "admin@cmx.gov", token, "changed-pass"))
		assert.ErrorIs(t, broker.Reset(ctx, "admin@cmx.gov", token, "again-pass"), auth.ErrTokenInvalid)

		got, err := users.Authenticate(ctx, "admin@cmx.gov", "changed-pass")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		return nil
	})
	require.NoError(t, err)

	_, err = users.Authenticate(ctx, "admin@cmx.gov", "landlord-pass")
	assert.NoError(t, err)
	_, err = users.Authenticate(ctx, "admin@cmx.gov", "changed-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
