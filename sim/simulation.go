package sim

import (
	"github.com/rs/xid"
)

// A Config enumerates everything needed to initialize a simulation.
type Config struct {
	// Modules selects the registered modules taking part in the run, in the
	// order that breaks ties between modules with no dependency relation.
	Modules []string

	// StartTime and EndTime bound the run. Events scheduled strictly after
	// EndTime are dropped, never executed.
	StartTime VTime
	EndTime   VTime

	// TimeUnit is diagnostic metadata (e.g. "year"); it never affects
	// scheduling.
	TimeUnit string

	// GlobalParams are run-level parameter overrides applied to every
	// module. Per-module overrides shadow them.
	GlobalParams map[string]any

	// ModuleParams are run-level parameter overrides per module.
	ModuleParams map[string]map[string]any
}

// A Simulation wraps a fresh shared state and a seeded event queue. It is a
// single-use handle: once Run completes, a new Simulation must be initialized
// to run again.
type Simulation struct {
	id       string
	timeUnit string

	state *State
	sched *Scheduler
	graph DependencyGraph
	order []string
}

// NewSimulation initializes a simulation from the registry and the config.
// It resolves the activation order, merges the parameter tables, and seeds
// one init event per module at the start time. Configuration errors
// (UnknownModuleError, DuplicateModuleNameError, CyclicDependencyError)
// abort the initialization; no partially constructed Simulation is returned.
func NewSimulation(reg *Registry, cfg Config) (*Simulation, error) {
	graph, err := reg.Graph(cfg.Modules)
	if err != nil {
		return nil, err
	}

	order, err := sortGraph(graph)
	if err != nil {
		return nil, err
	}

	state := NewState(cfg.StartTime)
	handlers := make(map[string]Handler, len(order))

	for _, name := range order {
		desc, err := reg.Descriptor(name)
		if err != nil {
			return nil, err
		}

		state.setParams(name, mergeParams(
			desc.Params, cfg.GlobalParams, cfg.ModuleParams[name]))
		handlers[name] = reg.handlerOf(name)
	}

	sched := NewScheduler(state, order, handlers, cfg.StartTime, cfg.EndTime)

	s := &Simulation{
		id:       xid.New().String(),
		timeUnit: cfg.TimeUnit,
		state:    state,
		sched:    sched,
		graph:    graph,
		order:    order,
	}

	if err := sched.Seed(); err != nil {
		return nil, err
	}

	return s, nil
}

// mergeParams resolves the parameter table of one module: module-declared
// defaults, shadowed by run-level global overrides, shadowed by per-module
// overrides.
func mergeParams(defaults, globals, overrides map[string]any) map[string]any {
	merged := make(map[string]any,
		len(defaults)+len(globals)+len(overrides))

	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range globals {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// TimeUnit returns the diagnostic time unit of the simulation.
func (s *Simulation) TimeUnit() string {
	return s.timeUnit
}

// State returns the shared simulation state.
func (s *Simulation) State() *State {
	return s.state
}

// Scheduler returns the engine driving the simulation.
func (s *Simulation) Scheduler() *Scheduler {
	return s.sched
}

// ActivationOrder returns the resolved module activation order.
func (s *Simulation) ActivationOrder() []string {
	order := make([]string, len(s.order))
	copy(order, s.order)
	return order
}

// DependencyGraph returns the read-only dependency structure of the
// simulation, for diagnostics and visualization tooling.
func (s *Simulation) DependencyGraph() DependencyGraph {
	return s.graph
}

// Run drives the scheduler until it finishes. Errors raised inside handlers
// propagate out unmodified, wrapped only with the module and event context.
func (s *Simulation) Run() error {
	return s.sched.Run()
}
