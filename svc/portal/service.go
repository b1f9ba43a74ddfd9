package portal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camarasaas/portal/handler"
	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/binder"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/mail"
	"github.com/camarasaas/portal/pkg/sanitizer"
	"github.com/camarasaas/portal/pkg/tenant"
	"github.com/camarasaas/portal/pkg/validator"
)

// Broker issues and consumes password reset tokens for the active tenant.
type Broker interface {
	CreateToken(ctx context.Context, email string) (string, error)
	Reset(ctx context.Context, email, token, newPassword string) error
	TTL(ctx context.Context) time.Duration
}

// SettingsFunc returns the active tenant's cached settings.
type SettingsFunc func(ctx context.Context) tenant.Settings

// LinkFunc builds the reset URL a user receives by email.
type LinkFunc func(t *tenant.Tenant, email, token string) string

type Service struct {
	broker   Broker
	mailer   mail.Sender
	settings SettingsFunc
	link     LinkFunc
	limiter  func(http.Handler) http.Handler
	logger   *slog.Logger
	errors   handler.ErrorHandler
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit guards the password endpoints with mw.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(s *Service) { s.limiter = mw }
}

func New(broker Broker, mailer mail.Sender, settings SettingsFunc, link LinkFunc, opts ...Option) *Service {
	s := &Service{
		broker:   broker,
		mailer:   mailer,
		settings: settings,
		link:     link,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("portal"))
	s.errors = handler.NewErrorHandler(s.logger,
		handler.MapError(auth.ErrTokenInvalid, handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "invalid_token"}),
		handler.MapError(auth.ErrTokenExpired, handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "token_expired"}),
		handler.MapError(tenant.ErrNoTenantInContext, handler.ErrNotFound),
	)
	return s
}

// Routes returns the tenant router. Mount it behind tenant.RequireTenant.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/settings", handler.Wrap(s.showSettings, handler.WithErrorHandler[struct{}](s.errors)))
	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter)
		}
		s.passwordRoutes(r)
	})
	return r
}

func (s *Service) passwordRoutes(r chi.Router) {
	r.Post("/password/forgot", handler.Wrap(s.forgotPassword,
		handler.WithBinders[forgotPasswordRequest](binder.JSON()),
		handler.WithErrorHandler[forgotPasswordRequest](s.errors),
	))
	r.Post("/password/reset", handler.Wrap(s.resetPassword,
		handler.WithBinders[resetPasswordRequest](binder.JSON()),
		handler.WithErrorHandler[resetPasswordRequest](s.errors),
	))
}

type settingsResponse struct {
	Name       string          `json:"name"`
	RoutingKey string          `json:"routing_key"`
	Settings   tenant.Settings `json:"settings"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Service) showSettings(r *http.Request, _ struct{}) handler.Response {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		return handler.Error(tenant.ErrNoTenantInContext)
	}
	return handler.JSON(settingsResponse{
		Name:       t.Name,
		RoutingKey: t.RoutingKey,
		Settings:   s.settings(r.Context()),
	})
}

// forgotPassword answers 202 whether or not the address belongs to a user.
func (s *Service) forgotPassword(r *http.Request, req forgotPasswordRequest) handler.Response {
	ctx := r.Context()
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return handler.Error(tenant.ErrNoTenantInContext)
	}

	email := sanitizer.NormalizeEmail(req.Email)
	if err := validator.Apply(
		validator.Required("email", email),
		validator.ValidEmail("email", email),
	); err != nil {
		return handler.Error(err)
	}

	token, err := s.broker.CreateToken(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		s.logger.InfoContext(ctx, "password reset requested for unknown email")
		return handler.EmptyWithStatus(http.StatusAccepted)
	}
	if err != nil {
		return handler.Error(err)
	}

	msg, err := mail.PasswordResetMessage(ctx, t, email, s.link(t, email, token), s.broker.TTL(ctx))
	if err != nil {
		return handler.Error(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return handler.Error(err)
	}
	return handler.EmptyWithStatus(http.StatusAccepted)
}

func (s *Service) resetPassword(r *http.Request, req resetPasswordRequest) handler.Response {
	if err := validator.Apply(
		validator.Required("email", req.Email),
		validator.Required("token", req.Token),
	); err != nil {
		return handler.Error(err)
	}
	if err := s.broker.Reset(r.Context(), req.Email, req.Token, req.Password); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}
