package tenant

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is returned when no tenant owns a non-central host.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrResolution is returned when the registry cannot be queried.
	ErrResolution = errors.New("tenant resolution failed")

	// ErrInvalidRoutingKey is returned when a routing key is not a valid DNS label.
	ErrInvalidRoutingKey = errors.New("invalid tenant routing key")

	// ErrNoTenantInContext is returned when no tenant is active in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrSwitchTask is matched by every TaskError.
	ErrSwitchTask = errors.New("tenant switch task failed")

	// ErrNestedActivation is returned when activating while a tenant is already active.
	ErrNestedActivation = errors.New("tenant already active in this scope")

	// ErrNotActive is returned when deactivating a scope that is not active.
	ErrNotActive = errors.New("no active tenant to deactivate")
)

// Phase names the switcher operation during which a task failed.
type Phase string

const (
	PhaseActivate   Phase = "activate"
	PhaseDeactivate Phase = "deactivate"
)

// TaskError reports a failed switch task. Cleanup holds errors raised while
// undoing tasks that had already been activated.
type TaskError struct {
	Task    string
	Phase   Phase
	Err     error
	Cleanup error
}

func (e *TaskError) Error() string {
	msg := fmt.Sprintf("tenant: %s task %q: %v", e.Phase, e.Task, e.Err)
	if e.Cleanup != nil {
		msg += fmt.Sprintf(" (cleanup: %v)", e.Cleanup)
	}
	return msg
}

func (e *TaskError) Unwrap() []error {
	errs := []error{ErrSwitchTask, e.Err}
	if e.Cleanup != nil {
		errs = append(errs, e.Cleanup)
	}
	return errs
}
