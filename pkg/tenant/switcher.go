package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/multierr"
)

// Task switches one slice of process state in lockstep with tenant activation.
// Implementations write their overlay into the scope and must tolerate being
// deactivated in any order relative to the other tasks.
type Task interface {
	// Activate applies the tenant overlay. It should write to the scope only
	// once everything it needs has been computed, so a failure leaves no trace.
	Activate(ctx context.Context, s *Scope, t *Tenant) error

	// Deactivate restores the landlord state captured when the task was built.
	Deactivate(ctx context.Context, s *Scope) error
}

// Switcher runs an ordered list of tasks on activation and deactivation.
// Deactivation runs in the same order as activation. A failed activation
// undoes the tasks already activated in reverse order.
type Switcher struct {
	tasks  []Task
	logger *slog.Logger
}

// SwitcherOption configures a Switcher.
type SwitcherOption func(*Switcher)

// WithSwitcherLogger sets the logger used for switch diagnostics.
func WithSwitcherLogger(l *slog.Logger) SwitcherOption {
	return func(s *Switcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSwitcher creates a switcher over a fixed task list.
func NewSwitcher(tasks []Task, opts ...SwitcherOption) *Switcher {
	s := &Switcher{
		tasks:  append([]Task(nil), tasks...),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate makes t the active tenant of the execution unit owning ctx.
// The returned context carries the scope and must be passed to Deactivate.
// If a task fails, every task activated before it is deactivated and the
// original error is returned as a *TaskError together with the input context.
func (sw *Switcher) Activate(ctx context.Context, t *Tenant) (context.Context, error) {
	if t == nil {
		return ctx, errors.New("tenant: cannot activate nil tenant")
	}

	parent := ctx
	s, ok := ScopeFromContext(ctx)
	if !ok {
		s = newScope()
		ctx = withScope(ctx, s)
	}

	if err := s.begin(ctx, t); err != nil {
		return parent, err
	}

	for i, task := range sw.tasks {
		if err := task.Activate(ctx, s, t); err != nil {
			cleanup := sw.undo(context.WithoutCancel(ctx), s, sw.tasks[:i])
			if terr := s.fire(context.WithoutCancel(ctx), evRollback); terr != nil {
				cleanup = multierr.Append(cleanup, terr)
			}
			sw.logger.ErrorContext(ctx, "tenant activation failed",
				slog.String("routing_key", t.RoutingKey),
				slog.String("task", taskName(task)),
				slog.Any("error", err),
			)
			return parent, &TaskError{Task: taskName(task), Phase: PhaseActivate, Err: err, Cleanup: cleanup}
		}
	}

	if err := s.fire(ctx, evActivated); err != nil {
		return parent, err
	}

	sw.logger.DebugContext(ctx, "tenant activated", slog.String("routing_key", t.RoutingKey))
	return ctx, nil
}

// Deactivate restores landlord state for the scope in ctx. Every task is
// deactivated even if some fail; the scope always ends Idle.
func (sw *Switcher) Deactivate(ctx context.Context) error {
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return ErrNotActive
	}
	if err := s.fire(ctx, evDeactivate); err != nil {
		return errors.Join(ErrNotActive, err)
	}

	var errs error
	for _, task := range sw.tasks {
		if err := task.Deactivate(ctx, s); err != nil {
			errs = multierr.Append(errs, &TaskError{Task: taskName(task), Phase: PhaseDeactivate, Err: err})
		}
	}

	if err := s.fire(ctx, evDeactivated); err != nil {
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		sw.logger.ErrorContext(ctx, "tenant deactivation failed", slog.Any("error", errs))
	}
	return errs
}

// Run activates t, calls fn with the tenant context and deactivates on every
// exit path, including panics and cancellation of ctx.
func (sw *Switcher) Run(ctx context.Context, t *Tenant, fn func(ctx context.Context) error) (err error) {
	ctx, err = sw.Activate(ctx, t)
	if err != nil {
		return err
	}
	defer func() {
		if derr := sw.Deactivate(context.WithoutCancel(ctx)); derr != nil {
			err = errors.Join(err, derr)
		}
	}()
	return fn(ctx)
}

func (sw *Switcher) undo(ctx context.Context, s *Scope, activated []Task) error {
	var errs error
	for i := len(activated) - 1; i >= 0; i-- {
		task := activated[i]
		if err := task.Deactivate(ctx, s); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", taskName(task), err))
		}
	}
	return errs
}

func taskName(t Task) string {
	return fmt.Sprintf("%T", t)
}
