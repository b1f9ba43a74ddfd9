package rbac

import "errors"

var (
	// ErrInvalidRole is returned when a role does not exist.
	ErrInvalidRole = errors.New("rbac.invalid_role")

	// ErrRoleExists is returned when a role name is already taken.
	ErrRoleExists = errors.New("rbac.role_exists")

	// ErrInvalidPermission is returned for malformed permission names.
	ErrInvalidPermission = errors.New("rbac.invalid_permission")

	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("rbac.storage")
)
