package landlord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/rbac"
	"github.com/camarasaas/portal/pkg/tenant"
)

// ManagePermission is required to call the tenant API.
const ManagePermission = "tenants.manage"

// OperatorRole is granted to the bootstrap operator.
const OperatorRole = "operator"

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
}

type PermissionChecker interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
}

// RequireOperator authenticates landlord users with HTTP Basic credentials
// and requires ManagePermission. It refuses to run inside a tenant scope so
// tenant users can never authenticate against it.
func RequireOperator(users Authenticator, perms PermissionChecker, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := tenant.FromContext(ctx); ok {
				http.NotFound(w, r)
				return
			}

			email, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			user, err := users.Authenticate(ctx, email, password)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrUserNotFound) {
					log.ErrorContext(ctx, "operator authentication failed", logger.Error(err), logger.Component("landlord"))
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				unauthorized(w)
				return
			}

			allowed, err := perms.Can(ctx, user.ID, ManagePermission)
			if err != nil {
				log.ErrorContext(ctx, "permission check failed", logger.UserID(user.ID), logger.Error(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="landlord", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// Bootstrapper creates the first operator account.
type Bootstrapper struct {
	Users interface {
		FindByEmail(ctx context.Context, email string) (*auth.User, error)
		Create(ctx context.Context, name, email, password string) (*auth.User, error)
	}
	Roles interface {
		CreateRole(ctx context.Context, role rbac.Role) error
		AssignRole(ctx context.Context, userID uuid.UUID, role string) error
	}
}

// EnsureOperator creates the operator role and an operator user for email
// unless that user already exists. It runs against the landlord database.
func (b Bootstrapper) EnsureOperator(ctx context.Context, name, email, password string) (created bool, err error) {
	if _, ok := tenant.FromContext(ctx); ok {
		return false, errors.New("landlord: operator bootstrap inside a tenant scope")
	}
	if _, err := b.Users.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return false, err
	}

	err = b.Roles.CreateRole(ctx, rbac.Role{Name: OperatorRole, Permissions: []string{"tenants.*"}})
	if err != nil && !errors.Is(err, rbac.ErrRoleExists) {
		return false, err
	}
	user, err := b.Users.Create(ctx, name, email, password)
	if err != nil {
		return false, err
	}
	if err := b.Roles.AssignRole(ctx, user.ID, OperatorRole); err != nil {
		return false, err
	}
	return true, nil
}
