package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/camarasaas/portal/internal/db"
	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/cache"
	"github.com/camarasaas/portal/pkg/clientip"
	"github.com/camarasaas/portal/pkg/config"
	"github.com/camarasaas/portal/pkg/httpserver"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/mail"
	"github.com/camarasaas/portal/pkg/pg"
	"github.com/camarasaas/portal/pkg/provision"
	"github.com/camarasaas/portal/pkg/ratelimit"
	"github.com/camarasaas/portal/pkg/rbac"
	"github.com/camarasaas/portal/pkg/registry"
	"github.com/camarasaas/portal/pkg/tenant"
	"github.com/camarasaas/portal/svc/landlord"
	"github.com/camarasaas/portal/svc/portal"
)

type appConfig struct {
	Env           string        `env:"APP_ENV" envDefault:"development"`
	Service       string        `env:"SERVICE_NAME" envDefault:"portal"`
	LogLevel      string        `env:"LOG_LEVEL"`
	PurgeInterval time.Duration `env:"RESET_TOKEN_PURGE_INTERVAL" envDefault:"1h"`

	OperatorName     string `env:"LANDLORD_OPERATOR_NAME" envDefault:"Operador"`
	OperatorEmail    string `env:"LANDLORD_OPERATOR_EMAIL"`
	OperatorPassword string `env:"LANDLORD_OPERATOR_PASSWORD"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("portal stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		cacheCfg  cache.Config
		mailCfg   mail.Config
		tenantCfg tenant.Config
		provCfg   provision.Config
		authCfg   auth.Config
		httpCfg   httpserver.Config
		rateCfg   ratelimit.Config
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&pgCfg),
		config.Load(&cacheCfg),
		config.Load(&mailCfg),
		config.Load(&tenantCfg),
		config.Load(&provCfg),
		config.Load(&authCfg),
		config.Load(&httpCfg),
		config.Load(&rateCfg),
	); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(appCfg.Env, appCfg.Service),
		logger.WithContextExtractors(tenant.LoggerExtractor(), requestID),
	}
	if appCfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(appCfg.LogLevel))
	}
	log := logger.New(logOpts...)
	slog.SetDefault(log)

	landlordPool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer landlordPool.Close()

	if err := pg.Migrate(ctx, landlordPool, db.Landlord(), pgCfg.MigrationsTable, log); err != nil {
		return err
	}

	st, err := openStores(ctx, cacheCfg, log)
	if err != nil {
		return err
	}
	defer st.close()
	readyChecks := append(st.checks, pg.Healthcheck(landlordPool))

	limiter, err := ratelimit.NewBucket(st.limits, rateCfg)
	if err != nil {
		return err
	}

	sender, err := mail.NewSender(mailCfg)
	if err != nil {
		return err
	}

	router := pg.NewRouter(landlordPool,
		pg.WithTenantMaxConns(pgCfg.TenantMaxConns),
		pg.WithRouterLogger(log),
	)
	defer router.CloseAll()

	guards := auth.NewGuardTask(auth.LandlordSelection(authCfg.ResetTokenTTL), auth.TenantSelection(authCfg.ResetTokenTTL))
	authStorage := auth.NewPostgresStorage(router, guards)
	users := auth.NewUsers(authStorage, auth.WithBcryptCost(authCfg.BcryptCost), auth.WithUsersLogger(log))
	broker := auth.NewBroker(authStorage, guards, auth.WithBrokerBcryptCost(authCfg.BcryptCost), auth.WithBrokerLogger(log))

	bindings := rbac.NewBindingTask(rbac.LandlordBindings(), rbac.TenantBindings())
	roles := rbac.NewStore(router, bindings)
	settings := cache.NewSettingsTask(st.cache)

	if appCfg.OperatorEmail != "" {
		created, err := landlord.Bootstrapper{Users: users, Roles: roles}.
			EnsureOperator(ctx, appCfg.OperatorName, appCfg.OperatorEmail, appCfg.OperatorPassword)
		if err != nil {
			return err
		}
		if created {
			log.InfoContext(ctx, "created landlord operator", slog.String("email", appCfg.OperatorEmail))
		}
	}

	switcher := tenant.NewSwitcher([]tenant.Task{router, guards, bindings, settings}, tenant.WithSwitcherLogger(log))

	tenants := registry.NewStore(landlordPool)
	resolver, err := tenant.NewHostResolverFromConfig(tenants, tenantCfg)
	if err != nil {
		return err
	}

	if provCfg.AppDomain == "" {
		provCfg.AppDomain = resolver.CentralDomains()[0]
	}
	provisioner := provision.New(provision.Deps{
		Registry:  tenants,
		Databases: pg.NewAdmin(landlordPool, router),
		Switcher:  switcher,
		Migrator:  pg.NewTenantMigrator(router, db.Tenant(), pgCfg.MigrationsTable, log),
		Seeder:    provision.NewSeeder(router, roles, provision.DefaultSeed()),
		Users:     users,
		Roles:     roles,
		Tokens:    broker,
		Mailer:    sender,
		Lookups:   resolver,
		Settings:  settings,
	}, provCfg, provision.WithLogger(log))

	clientIPs, err := clientip.New(tenantCfg.TrustedProxies...)
	if err != nil {
		return err
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID, middleware.Recoverer, clientIPs.Middleware)
	mux.Get("/health/live", httpserver.LivenessHandler())
	mux.Get("/health/ready", httpserver.ReadinessHandler(log, readyChecks...))
	mux.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(resolver, switcher, tenant.WithLogger(log), tenant.WithSkipPaths([]string{"/health/"})))

		landlordAPI := landlord.New(provisioner, tenants,
			landlord.WithLogger(log),
			landlord.WithMiddleware(landlord.RequireOperator(users, roles, log)),
		).Routes()
		portalAPI := portal.New(broker, sender, settings.Settings, provCfg.ResetURL,
			portal.WithLogger(log),
			portal.WithRateLimit(ratelimit.Middleware(limiter, ratelimit.TenantClientKey("password"), log)),
		).Routes()

		r.Mount("/", hostSplit(tenant.RequireCentral()(landlordAPI), tenant.RequireTenant(nil)(portalAPI)))
	})

	go purgeExpiredTokens(ctx, log, appCfg.PurgeInterval, tenants, switcher, broker)

	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, mux)
}

func requestID(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	if id == "" {
		return slog.Attr{}, false
	}
	return logger.RequestID(id), true
}

// hostSplit serves central traffic with central and tenant traffic with
// tenantHandler, based on the scope installed by tenant.Middleware.
func hostSplit(central, tenantHandler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenant.FromContext(r.Context()); ok {
			tenantHandler.ServeHTTP(w, r)
			return
		}
		central.ServeHTTP(w, r)
	})
}

type stores struct {
	cache  cache.Store
	limits ratelimit.Store
	checks []func(context.Context) error
	close  func()
}

// openStores returns Redis-backed stores when REDIS_URL is set, in-process
// stores otherwise.
func openStores(ctx context.Context, cfg cache.Config, log *slog.Logger) (stores, error) {
	if cfg.RedisURL == "" {
		log.InfoContext(ctx, "REDIS_URL not set, using in-memory stores", logger.Component("cache"))
		limits := ratelimit.NewMemoryStore()
		return stores{
			cache:  cache.NewMemoryStore(cfg.MemoryCapacity),
			limits: limits,
			close:  limits.Close,
		}, nil
	}

	client, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	return stores{
		cache:  cache.NewRedisStore(client),
		limits: ratelimit.NewRedisStore(client),
		checks: []func(context.Context) error{cache.Healthcheck(client)},
		close: func() {
			if err := client.Close(); err != nil {
				log.ErrorContext(ctx, "failed to close redis client", logger.Error(err))
			}
		},
	}, nil
}

// purgeExpiredTokens deletes stale password reset tokens from the landlord
// and every tenant database on each tick.
func purgeExpiredTokens(ctx context.Context, log *slog.Logger, every time.Duration, tenants *registry.Store, sw *tenant.Switcher, broker *auth.Broker) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := broker.PurgeExpired(ctx); err != nil {
			log.ErrorContext(ctx, "failed to purge landlord reset tokens", logger.Error(err))
		} else if n > 0 {
			log.InfoContext(ctx, "purged landlord reset tokens", slog.Int64("count", n))
		}

		list, err := tenants.List(ctx)
		if err != nil {
			log.ErrorContext(ctx, "failed to list tenants for token purge", logger.Error(err))
			continue
		}
		for _, t := range list {
			err := sw.Run(ctx, t, func(ctx context.Context) error {
				n, err := broker.PurgeExpired(ctx)
				if n > 0 {
					log.InfoContext(ctx, "purged tenant reset tokens", slog.Int64("count", n))
				}
				return err
			})
			if err != nil {
				log.ErrorContext(ctx, "failed to purge tenant reset tokens", logger.RoutingKey(t.RoutingKey), logger.Error(err))
			}
		}
	}
}
