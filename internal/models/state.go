package models

import "fmt"

// RunState is the lifecycle of one run of the processing engine
type RunState int

const (
	StateIdle RunState = iota
	StateLoaded
	StateRunning
	StatePaused
	StateFinished
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the run is over and only a reset moves on. A stopped
// run ends in StateFinished like an exhausted one.
func (s RunState) Terminal() bool {
	return s == StateFinished
}

var transitions = map[RunState][]RunState{
	StateIdle:     {StateLoaded},
	StateLoaded:   {StateLoaded, StateRunning},
	StateRunning:  {StatePaused, StateFinished},
	StatePaused:   {StateRunning, StateFinished},
	StateFinished: {},
}

// CanTransition reports whether next is reachable from s. Reset to Idle is
// always permitted and not listed here.
func (s RunState) CanTransition(next RunState) bool {
	if next == StateIdle {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next or an ErrInvalidTransition
func (s RunState) Transition(next RunState) (RunState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}
