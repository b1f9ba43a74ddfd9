package db_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/internal/db"
)

func TestMigrationSets(t *testing.T) {
	t.Parallel()

	landlord, err := fs.Glob(db.Landlord(), "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_tenants.sql", "00002_auth.sql", "00003_rbac.sql"}, landlord)

	tenant, err := fs.Glob(db.Tenant(), "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_auth.sql", "00002_rbac.sql", "00003_service_types.sql"}, tenant)
}
