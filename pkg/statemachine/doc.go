// Package statemachine implements small finite state machines driven by
// named events.
//
// A Machine holds the current state and a transition table keyed by source
// state and event. Firing an event picks the first transition whose guards
// all pass, runs its actions in order and only then moves to the target
// state. A failing action leaves the state unchanged.
//
//	idle := statemachine.StringState("idle")
//	busy := statemachine.StringState("busy")
//	start := statemachine.StringEvent("start")
//
//	m := statemachine.MustNew(idle,
//		statemachine.WithTransition(idle, busy, start,
//			statemachine.WithGuard(func(ctx context.Context, from statemachine.State, e statemachine.Event, data any) bool {
//				return data != nil
//			}),
//		),
//	)
//	err := m.Fire(ctx, start, job)
//
// Fire reports an undefined transition with *NoTransitionError and a guard
// veto with *RejectedError; IsNoTransition and IsRejected test for them.
// Machine is safe for concurrent use.
package statemachine
