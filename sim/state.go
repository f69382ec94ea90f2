package sim

import (
	"sort"
	"sync"
)

// State is the shared mutable container threaded through every handler call.
// It holds the simulation clock, the object store that modules use as an
// inter-module data bus, and the parameter table merged at initialization.
//
// Event execution is single threaded. One event runs to completion before the
// next is popped, so handlers never observe each other mid-write. Any module
// may read any object; by convention only the declared producer writes it, and
// correctness relies on producers dispatching before consumers at each
// simulated time. A mutex still guards the store because observers outside
// the scheduler loop, such as the monitoring server, read the state while a
// run is in progress.
type State struct {
	mu      sync.RWMutex
	clock   VTime
	objects map[string]any
	params  map[string]map[string]any
}

// NewState creates a State with an empty object store and the clock at the
// given start time.
func NewState(startTime VTime) *State {
	return &State{
		clock:   startTime,
		objects: make(map[string]any),
		params:  make(map[string]map[string]any),
	}
}

// Now returns the current simulated time.
func (s *State) Now() VTime {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clock
}

// Get returns the named object, or UndefinedObjectError if no module or
// external supplier has written it.
func (s *State) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.objects[name]
	if !ok {
		return nil, UndefinedObjectError{Name: name}
	}

	return v, nil
}

// Has reports whether the named object exists.
func (s *State) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[name]
	return ok
}

// Set writes the named object, overwriting any previous value. The write is
// immediately visible to every handler dispatched afterward, including
// handlers at the same simulated time.
func (s *State) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[name] = value
}

// ObjectNames returns the names of all defined objects in sorted order.
func (s *State) ObjectNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.objects))
	for n := range s.objects {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Param resolves a module parameter. Run-level overrides and module-declared
// defaults are merged into the table when the simulation is initialized, so a
// miss here means the parameter is defined nowhere.
func (s *State) Param(module, name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mp, ok := s.params[module]
	if ok {
		if v, found := mp[name]; found {
			return v, nil
		}
	}

	return nil, UndefinedParameterError{Module: module, Param: name}
}

// setParams installs the merged parameter table for one module. Called once
// per module during initialization; the table is immutable afterward.
func (s *State) setParams(module string, params map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params[module] = params
}

// advanceClockTo moves the clock forward. Only the scheduler calls it, right
// before dispatching an event.
func (s *State) advanceClockTo(t VTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t < s.clock {
		return ClockRegressionError{Attempted: t, Now: s.clock}
	}

	s.clock = t

	return nil
}
