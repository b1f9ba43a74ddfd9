package statemachine

import "context"

// State is a machine state identified by its name.
type State interface {
	Name() string
}

// Event triggers transitions and is identified by its name.
type Event interface {
	Name() string
}

// Guard vetoes a transition by returning false.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs while a transition is applied. An error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition moves the machine from From to To when Event fires.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StringState is a State named by its value.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is an Event named by its value.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
