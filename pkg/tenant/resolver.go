package tenant

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// DefaultForwardedHeader is the header consulted for the original host when
// the request arrives through a trusted proxy.
const DefaultForwardedHeader = "X-Forwarded-Host"

// Config holds resolver configuration loaded from the environment.
type Config struct {
	CentralDomains  []string      `env:"CENTRAL_DOMAINS,required" envSeparator:","`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	ForwardedHeader string        `env:"FORWARDED_HOST_HEADER" envDefault:"X-Forwarded-Host"`
	CacheTTL        time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	CacheSize       int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`
}

// Resolution is the outcome of resolving a request host.
type Resolution struct {
	Host       string
	RoutingKey string
	Central    bool
	Tenant     *Tenant
}

// HostResolver maps request hosts to tenants by subdomain of a central domain.
type HostResolver struct {
	registry Registry
	central  []string
	proxies  []string
	trusted  []netip.Prefix
	header   string
	cache    Cache
	ttl      time.Duration
}

// ResolverOption configures a HostResolver.
type ResolverOption func(*HostResolver)

// WithCentralDomains sets the landlord domains. Hosts equal to one of them
// are central traffic; their subdomains are tenant traffic.
func WithCentralDomains(domains ...string) ResolverOption {
	return func(r *HostResolver) {
		r.central = append(r.central, domains...)
	}
}

// WithTrustedProxies sets the IPs or CIDRs allowed to supply the forwarded host header.
func WithTrustedProxies(proxies ...string) ResolverOption {
	return func(r *HostResolver) {
		r.proxies = append(r.proxies, proxies...)
	}
}

// WithForwardedHeader overrides the forwarded host header name.
func WithForwardedHeader(name string) ResolverOption {
	return func(r *HostResolver) {
		if name != "" {
			r.header = name
		}
	}
}

// WithCache sets the cache used for registry lookups.
func WithCache(c Cache) ResolverOption {
	return func(r *HostResolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithCacheTTL sets how long registry lookups are cached.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *HostResolver) {
		r.ttl = ttl
	}
}

// NewHostResolver creates a resolver backed by the given registry.
func NewHostResolver(registry Registry, opts ...ResolverOption) (*HostResolver, error) {
	if registry == nil {
		return nil, errors.New("tenant: registry is required")
	}

	r := &HostResolver{
		registry: registry,
		header:   DefaultForwardedHeader,
		cache:    NoOpCache{},
		ttl:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}

	central := make([]string, 0, len(r.central))
	for _, d := range r.central {
		if d = NormalizeHost(d); d != "" && !slices.Contains(central, d) {
			central = append(central, d)
		}
	}
	if len(central) == 0 {
		return nil, errors.New("tenant: at least one central domain is required")
	}
	// Longest suffix first so nested central domains win over their parents.
	slices.SortStableFunc(central, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	r.central = central

	for _, p := range r.proxies {
		if strings.TrimSpace(p) == "" {
			continue
		}
		prefix, err := parseProxy(p)
		if err != nil {
			return nil, err
		}
		r.trusted = append(r.trusted, prefix)
	}

	return r, nil
}

// NewHostResolverFromConfig creates a resolver from environment configuration.
func NewHostResolverFromConfig(registry Registry, cfg Config, opts ...ResolverOption) (*HostResolver, error) {
	base := []ResolverOption{
		WithCentralDomains(cfg.CentralDomains...),
		WithTrustedProxies(cfg.TrustedProxies...),
		WithForwardedHeader(cfg.ForwardedHeader),
	}
	if cfg.CacheTTL > 0 {
		base = append(base, WithCacheTTL(cfg.CacheTTL), WithCache(NewMemoryCache(cfg.CacheSize)))
	}
	return NewHostResolver(registry, append(base, opts...)...)
}

// CentralDomains returns the configured landlord domains, longest first.
func (r *HostResolver) CentralDomains() []string {
	return slices.Clone(r.central)
}

// Resolve returns the tenant owning the request host, or nil for central
// traffic and unknown hosts. Registry failures are wrapped with ErrResolution.
func (r *HostResolver) Resolve(req *http.Request) (*Tenant, error) {
	res, err := r.Lookup(req)
	if err != nil {
		return nil, err
	}
	return res.Tenant, nil
}

// Lookup resolves the request host and reports whether it is central traffic.
func (r *HostResolver) Lookup(req *http.Request) (Resolution, error) {
	return r.ResolveHost(req.Context(), r.Host(req))
}

// Host returns the normalized effective host of the request. The forwarded
// header is honoured only when the peer address is a trusted proxy.
func (r *HostResolver) Host(req *http.Request) string {
	if r.trustedPeer(req.RemoteAddr) {
		if fwd := req.Header.Get(r.header); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if h := NormalizeHost(first); h != "" {
				return h
			}
		}
	}
	return NormalizeHost(req.Host)
}

// ResolveHost runs the resolution algorithm against an already extracted host.
func (r *HostResolver) ResolveHost(ctx context.Context, host string) (Resolution, error) {
	host = NormalizeHost(host)
	res := Resolution{Host: host}

	key, central := r.routingKey(host)
	if central {
		res.Central = true
		return res, nil
	}
	if key == "" {
		return res, nil
	}
	res.RoutingKey = key

	if cached, ok := r.cache.Get(ctx, key); ok {
		res.Tenant = cached
		return res, nil
	}

	t, err := r.registry.FindByRoutingKey(ctx, key)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return res, nil
	case err != nil:
		return res, errors.Join(ErrResolution, err)
	case t == nil:
		return res, nil
	}

	r.cache.Set(ctx, key, t, r.ttl)
	res.Tenant = t
	return res, nil
}

// Invalidate drops the cached lookup for a routing key.
func (r *HostResolver) Invalidate(ctx context.Context, routingKey string) {
	r.cache.Delete(ctx, routingKey)
}

// routingKey extracts the candidate routing key from a normalized host.
func (r *HostResolver) routingKey(host string) (string, bool) {
	if host == "" {
		return "", false
	}
	if slices.Contains(r.central, host) {
		return "", true
	}
	for _, domain := range r.central {
		rest, ok := strings.CutSuffix(host, "."+domain)
		if !ok {
			continue
		}
		if i := strings.LastIndexByte(rest, '.'); i >= 0 {
			rest = rest[i+1:]
		}
		if rest == "" {
			return "", false
		}
		key, err := NormalizeRoutingKey(rest)
		if err != nil {
			return "", false
		}
		return key, false
	}
	return "", false
}

func (r *HostResolver) trustedPeer(remoteAddr string) bool {
	if len(r.trusted) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range r.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// NormalizeHost case-folds a host and strips any port and trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return cases.Fold().String(host)
}

func parseProxy(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("tenant: invalid trusted proxy %q: %w", s, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("tenant: invalid trusted proxy %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
