package landlord

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camarasaas/portal/handler"
	"github.com/camarasaas/portal/pkg/binder"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/provision"
	"github.com/camarasaas/portal/pkg/registry"
	"github.com/camarasaas/portal/pkg/tenant"
)

// Provisioner runs tenant lifecycle operations.
type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*tenant.Tenant, error)
	Delete(ctx context.Context, routingKey string) error
	UpdateSettings(ctx context.Context, routingKey string, settings tenant.Settings) (*tenant.Tenant, error)
}

// Lister enumerates registered tenants.
type Lister interface {
	List(ctx context.Context) ([]*tenant.Tenant, error)
}

type Service struct {
	provisioner Provisioner
	tenants     Lister
	logger      *slog.Logger
	errors      handler.ErrorHandler
	middlewares []func(http.Handler) http.Handler
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMiddleware wraps every tenant API route, e.g. with RequireOperator.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) {
		s.middlewares = append(s.middlewares, mw...)
	}
}

func New(p Provisioner, tenants Lister, opts ...Option) *Service {
	s := &Service{
		provisioner: p,
		tenants:     tenants,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errors = handler.NewErrorHandler(s.logger.With(logger.Component("landlord")), errorMappers...)
	return s
}

var errorMappers = []handler.ErrorMapper{
	handler.MapError(registry.ErrDuplicateRoutingKey, handler.HTTPError{Code: http.StatusConflict, Key: "routing_key_taken"}),
	handler.MapError(registry.ErrDuplicateTaxID, handler.HTTPError{Code: http.StatusConflict, Key: "tax_id_taken"}),
	handler.MapError(registry.ErrDuplicateDatabase, handler.HTTPError{Code: http.StatusConflict, Key: "database_taken"}),
	handler.MapError(tenant.ErrTenantNotFound, handler.ErrNotFound),
	handler.MapError(provision.ErrProvisioningStep, handler.HTTPError{Code: http.StatusInternalServerError, Key: "provisioning_failed"}),
}

// Routes returns the tenant API router.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.middlewares...)
	r.Get("/tenants", handler.Wrap(s.list, handler.WithErrorHandler[struct{}](s.errors)))
	r.Post("/tenants", handler.Wrap(s.create,
		handler.WithBinders[provision.Request](binder.JSON()),
		handler.WithErrorHandler[provision.Request](s.errors),
	))
	r.Delete("/tenants/{routingKey}", handler.Wrap(s.delete,
		handler.WithBinders[tenantKeyRequest](binder.Path()),
		handler.WithErrorHandler[tenantKeyRequest](s.errors),
	))
	r.Put("/tenants/{routingKey}/settings", handler.Wrap(s.updateSettings,
		handler.WithBinders[updateSettingsRequest](binder.JSON(), binder.Path()),
		handler.WithErrorHandler[updateSettingsRequest](s.errors),
	))
	return r
}

type tenantKeyRequest struct {
	RoutingKey string `path:"routingKey"`
}

type updateSettingsRequest struct {
	RoutingKey string          `json:"-" path:"routingKey"`
	Settings   tenant.Settings `json:"settings"`
}

func (s *Service) list(r *http.Request, _ struct{}) handler.Response {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		return handler.Error(err)
	}
	if tenants == nil {
		tenants = []*tenant.Tenant{}
	}
	return handler.JSON(tenants)
}

func (s *Service) create(r *http.Request, req provision.Request) handler.Response {
	t, err := s.provisioner.Provision(r.Context(), req)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(t, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) delete(r *http.Request, req tenantKeyRequest) handler.Response {
	if err := s.provisioner.Delete(r.Context(), req.RoutingKey); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (s *Service) updateSettings(r *http.Request, req updateSettingsRequest) handler.Response {
	t, err := s.provisioner.UpdateSettings(r.Context(), req.RoutingKey, req.Settings)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(t)
}
