package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is a mutex-guarded state machine.
type Machine struct {
	mu      sync.RWMutex
	initial State
	current State
	table   map[string]map[string][]Transition
}

// New builds a machine starting in initial.
func New(initial State, opts ...Option) (*Machine, error) {
	if initial == nil {
		return nil, fmt.Errorf("%w: nil initial state", ErrInvalidTransition)
	}
	m := &Machine{
		initial: initial,
		current: initial,
		table:   make(map[string]map[string][]Transition),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on a malformed transition table.
func MustNew(initial State, opts ...Option) *Machine {
	m, err := New(initial, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// AddTransition registers t. Transitions sharing a source state and event
// are tried in registration order.
func (m *Machine) AddTransition(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.table[t.From.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.table[t.From.Name()] = byEvent
	}
	byEvent[t.Event.Name()] = append(byEvent[t.Event.Name()], t)
	return nil
}

// Fire applies the first eligible transition for event.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.match(ctx, event, data)
	if err != nil {
		return err
	}
	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return fmt.Errorf("statemachine: %s on %s: %w", m.current.Name(), event.Name(), err)
		}
	}
	m.current = t.To
	return nil
}

// CanFire reports whether Fire would find an eligible transition. Actions
// are not run.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, event, data)
	return err == nil
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// match must be called with m.mu held.
func (m *Machine) match(ctx context.Context, event Event, data any) (*Transition, error) {
	candidates := m.table[m.current.Name()][event.Name()]
	if len(candidates) == 0 {
		return nil, &NoTransitionError{State: m.current.Name(), Event: event.Name()}
	}
	for i := range candidates {
		if passes(ctx, candidates[i].Guards, m.current, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &RejectedError{State: m.current.Name(), Event: event.Name()}
}

func passes(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
