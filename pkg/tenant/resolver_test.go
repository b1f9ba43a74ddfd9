package tenant_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/pkg/tenant"
)

var testCentralDomains = []string{"portal.gov.br", "camaras.test"}

func newTestResolver(t *testing.T, registry tenant.Registry, opts ...tenant.ResolverOption) *tenant.HostResolver {
	t.Helper()
	opts = append([]tenant.ResolverOption{tenant.WithCentralDomains(testCentralDomains...)}, opts...)
	r, err := tenant.NewHostResolver(registry, opts...)
	require.NoError(t, err)
	return r
}

func TestHostResolver(t *testing.T) {
	t.Parallel()

	cmsm := createTestTenant("cmsm")
	cmx := createTestTenant("cmx")

	t.Run("central domains resolve to no tenant", func(t *testing.T) {
		t.Parallel()

		registry := newMockRegistry(cmsm, cmx)
		resolver := newTestResolver(t, registry)

		for _, host := range []string{"portal.gov.br", "camaras.test", "PORTAL.gov.BR", "portal.gov.br:8443", "camaras.test."} {
			res, err := resolver.ResolveHost(context.Background(), host)
			require.NoError(t, err)
			assert.True(t, res.Central, "host %s", host)
			assert.Nil(t, res.Tenant, "host %s", host)
		}
		assert.Empty(t, registry.getCalls())
	})

	t.Run("routing key under every central domain resolves the tenant", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmsm, cmx))

		for _, tn := range []*tenant.Tenant{cmsm, cmx} {
			for _, domain := range testCentralDomains {
				got, err := resolver.Resolve(httptest.NewRequest("GET", "http://"+tn.RoutingKey+"."+domain+"/", nil))
				require.NoError(t, err)
				assert.Equal(t, tn, got, "%s.%s", tn.RoutingKey, domain)
			}
		}
	})

	t.Run("host case and port are normalized", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmx))
		req := httptest.NewRequest("GET", "/", nil)
		req.Host = "CMX.Portal.Gov.Br:8080"

		got, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, cmx, got)
	})

	t.Run("host without central suffix resolves to no tenant", func(t *testing.T) {
		t.Parallel()

		registry := newMockRegistry(cmx)
		resolver := newTestResolver(t, registry)

		for _, host := range []string{"cmx.example.org", "localhost", "gov.br", "xportal.gov.br"} {
			res, err := resolver.ResolveHost(context.Background(), host)
			require.NoError(t, err)
			assert.False(t, res.Central, "host %s", host)
			assert.Nil(t, res.Tenant, "host %s", host)
		}
		assert.Empty(t, registry.getCalls())
	})

	t.Run("bare suffix never triggers an empty lookup", func(t *testing.T) {
		t.Parallel()

		registry := newMockRegistry(cmx)
		resolver := newTestResolver(t, registry)

		res, err := resolver.ResolveHost(context.Background(), ".portal.gov.br")
		require.NoError(t, err)
		assert.Nil(t, res.Tenant)
		assert.Empty(t, res.RoutingKey)
		assert.Empty(t, registry.getCalls())
	})

	t.Run("uses the label immediately before the suffix", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmx))

		res, err := resolver.ResolveHost(context.Background(), "www.cmx.portal.gov.br")
		require.NoError(t, err)
		assert.Equal(t, "cmx", res.RoutingKey)
		assert.Equal(t, cmx, res.Tenant)
	})

	t.Run("nested central domains prefer the longest suffix", func(t *testing.T) {
		t.Parallel()

		resolver, err := tenant.NewHostResolver(newMockRegistry(cmx),
			tenant.WithCentralDomains("gov.br", "portal.gov.br"))
		require.NoError(t, err)

		res, err := resolver.ResolveHost(context.Background(), "cmx.portal.gov.br")
		require.NoError(t, err)
		assert.Equal(t, cmx, res.Tenant)

		res, err = resolver.ResolveHost(context.Background(), "portal.gov.br")
		require.NoError(t, err)
		assert.True(t, res.Central)
	})

	t.Run("unknown routing key resolves to no tenant", func(t *testing.T) {
		t.Parallel()

		registry := newMockRegistry(cmx)
		resolver := newTestResolver(t, registry)

		res, err := resolver.ResolveHost(context.Background(), "nope.portal.gov.br")
		require.NoError(t, err)
		assert.False(t, res.Central)
		assert.Nil(t, res.Tenant)
		assert.Equal(t, "nope", res.RoutingKey)
		assert.Equal(t, []string{"nope"}, registry.getCalls())
	})

	t.Run("invalid label resolves to no tenant", func(t *testing.T) {
		t.Parallel()

		registry := newMockRegistry(cmx)
		resolver := newTestResolver(t, registry)

		res, err := resolver.ResolveHost(context.Background(), "cm_x.portal.gov.br")
		require.NoError(t, err)
		assert.Nil(t, res.Tenant)
		assert.Empty(t, registry.getCalls())
	})

	t.Run("registry failure is a distinguishable error", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("connection refused")
		registry := newMockRegistry(cmx)
		registry.setError(storeErr)
		resolver := newTestResolver(t, registry)

		got, err := resolver.Resolve(httptest.NewRequest("GET", "http://cmx.portal.gov.br/", nil))
		require.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, tenant.ErrResolution)
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("caches registry lookups", func(t *testing.T) {
		t.Parallel()

		registry := newMockRegistry(cmx)
		resolver := newTestResolver(t, registry,
			tenant.WithCache(tenant.NewMemoryCache(10)),
			tenant.WithCacheTTL(time.Minute),
		)

		for range 3 {
			res, err := resolver.ResolveHost(context.Background(), "cmx.portal.gov.br")
			require.NoError(t, err)
			assert.Equal(t, cmx, res.Tenant)
		}
		assert.Len(t, registry.getCalls(), 1)

		resolver.Invalidate(context.Background(), "cmx")
		_, err := resolver.ResolveHost(context.Background(), "cmx.portal.gov.br")
		require.NoError(t, err)
		assert.Len(t, registry.getCalls(), 2)
	})
}

func TestHostResolverForwardedHost(t *testing.T) {
	t.Parallel()

	cmx := createTestTenant("cmx")
	cmsm := createTestTenant("cmsm")

	t.Run("honours forwarded host from trusted proxy", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmx, cmsm), tenant.WithTrustedProxies("10.0.0.0/8"))
		req := httptest.NewRequest("GET", "http://internal.local/", nil)
		req.RemoteAddr = "10.1.2.3:41000"
		req.Header.Set("X-Forwarded-Host", "cmx.portal.gov.br, proxy.internal")

		got, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, cmx, got)
	})

	t.Run("ignores forwarded host from untrusted peer", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmx, cmsm), tenant.WithTrustedProxies("10.0.0.0/8"))
		req := httptest.NewRequest("GET", "http://cmsm.portal.gov.br/", nil)
		req.RemoteAddr = "203.0.113.7:41000"
		req.Header.Set("X-Forwarded-Host", "cmx.portal.gov.br")

		got, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, cmsm, got)
	})

	t.Run("ignores forwarded host when no proxies are trusted", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmx, cmsm))
		req := httptest.NewRequest("GET", "http://cmsm.portal.gov.br/", nil)
		req.RemoteAddr = "10.1.2.3:41000"
		req.Header.Set("X-Forwarded-Host", "cmx.portal.gov.br")

		assert.Equal(t, "cmsm.portal.gov.br", resolver.Host(req))
	})

	t.Run("supports single IP and custom header", func(t *testing.T) {
		t.Parallel()

		resolver := newTestResolver(t, newMockRegistry(cmx),
			tenant.WithTrustedProxies("192.0.2.10"),
			tenant.WithForwardedHeader("X-Original-Host"),
		)
		req := httptest.NewRequest("GET", "http://internal.local/", nil)
		req.RemoteAddr = "192.0.2.10:80"
		req.Header.Set("X-Original-Host", "CMX.portal.gov.br:443")

		assert.Equal(t, "cmx.portal.gov.br", resolver.Host(req))
	})
}

func TestNewHostResolver(t *testing.T) {
	t.Parallel()

	t.Run("requires registry", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewHostResolver(nil, tenant.WithCentralDomains("portal.gov.br"))
		assert.Error(t, err)
	})

	t.Run("requires a central domain", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewHostResolver(newMockRegistry(), tenant.WithCentralDomains(" "))
		assert.Error(t, err)
	})

	t.Run("rejects malformed proxies", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.NewHostResolver(newMockRegistry(),
			tenant.WithCentralDomains("portal.gov.br"),
			tenant.WithTrustedProxies("not-an-ip"),
		)
		assert.Error(t, err)
	})

	t.Run("builds from config", func(t *testing.T) {
		t.Parallel()

		r, err := tenant.NewHostResolverFromConfig(newMockRegistry(), tenant.Config{
			CentralDomains:  []string{"Portal.gov.br", "portal.gov.br", "a.portal.gov.br"},
			TrustedProxies:  []string{"", "127.0.0.1"},
			ForwardedHeader: tenant.DefaultForwardedHeader,
			CacheTTL:        time.Minute,
			CacheSize:       10,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.portal.gov.br", "portal.gov.br"}, r.CentralDomains())
	})
}
