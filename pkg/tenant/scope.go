package tenant

import (
	"context"
	"fmt"
	"sync"

	"github.com/camarasaas/portal/pkg/statemachine"
)

// State is the lifecycle state of a Scope.
type State int

const (
	StateIdle State = iota
	StateActivating
	StateActive
	StateDeactivating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Name identifies the state to the scope state machine.
func (s State) Name() string { return s.String() }

// Scope lifecycle events.
const (
	evActivate    = statemachine.StringEvent("activate")
	evActivated   = statemachine.StringEvent("activated")
	evRollback    = statemachine.StringEvent("rollback")
	evDeactivate  = statemachine.StringEvent("deactivate")
	evDeactivated = statemachine.StringEvent("deactivated")
)

// Scope is the tenant context of one execution unit (a request or a
// provisioning run). Switch tasks keep their overlay values in the scope's
// slots, so concurrent requests never observe each other's tenant.
type Scope struct {
	machine *statemachine.Machine

	mu     sync.RWMutex
	tenant *Tenant
	slots  map[any]any
}

func newScope() *Scope {
	s := &Scope{slots: make(map[any]any)}
	s.machine = statemachine.MustNew(StateIdle,
		statemachine.WithTransition(StateIdle, StateActivating, evActivate,
			statemachine.WithGuard(hasTenant),
			statemachine.WithAction(s.bind),
		),
		statemachine.WithTransition(StateActivating, StateActive, evActivated),
		statemachine.WithTransition(StateActivating, StateIdle, evRollback,
			statemachine.WithAction(s.unbind),
		),
		statemachine.WithTransition(StateActive, StateDeactivating, evDeactivate),
		statemachine.WithTransition(StateDeactivating, StateIdle, evDeactivated,
			statemachine.WithAction(s.unbind),
		),
	)
	return s
}

// State returns the current lifecycle state.
func (s *Scope) State() State {
	return s.machine.Current().(State)
}

// Tenant returns the active tenant, or nil unless the scope is Active.
func (s *Scope) Tenant() *Tenant {
	if s.State() != StateActive {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenant
}

// Store sets the value of a slot. Keys should be unexported types owned by
// the task that writes them.
func (s *Scope) Store(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
}

// Load returns the value of a slot.
func (s *Scope) Load(key any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok
}

// Clear removes a slot.
func (s *Scope) Clear(key any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
}

// begin moves the scope from Idle to Activating and binds t. Any other
// state has no activate transition, which is a nested activation.
func (s *Scope) begin(ctx context.Context, t *Tenant) error {
	state := s.State()
	err := s.machine.Fire(ctx, evActivate, t)
	switch {
	case err == nil:
		return nil
	case statemachine.IsNoTransition(err):
		return fmt.Errorf("%w: scope is %s: %w", ErrNestedActivation, state, err)
	default:
		return fmt.Errorf("tenant: %w", err)
	}
}

func (s *Scope) fire(ctx context.Context, ev statemachine.Event) error {
	if err := s.machine.Fire(ctx, ev, nil); err != nil {
		return fmt.Errorf("tenant: scope %s: %w", ev.Name(), err)
	}
	return nil
}

// bind and unbind run under the machine lock.
func (s *Scope) bind(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant = data.(*Tenant)
	return nil
}

func (s *Scope) unbind(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant = nil
	return nil
}

func hasTenant(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	t, ok := data.(*Tenant)
	return ok && t != nil
}
