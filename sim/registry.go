package sim

import (
	"github.com/sirupsen/logrus"
)

// A Registry holds the descriptors and handlers of all registered modules and
// computes dependency-respecting activation orders.
type Registry struct {
	log     logrus.FieldLogger
	order   []string
	modules map[string]*moduleEntry
}

type moduleEntry struct {
	desc    ModuleDescriptor
	handler Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		log:     logrus.StandardLogger(),
		modules: make(map[string]*moduleEntry),
	}
}

// SetLogger redirects the registry's diagnostics.
func (r *Registry) SetLogger(log logrus.FieldLogger) {
	r.log = log
}

// Register adds a module and its handler. The registration order is
// remembered: modules with no dependency relation are activated in the order
// they were registered.
func (r *Registry) Register(desc ModuleDescriptor, h Handler) error {
	if _, taken := r.modules[desc.Name]; taken {
		return DuplicateModuleNameError{Name: desc.Name}
	}

	r.modules[desc.Name] = &moduleEntry{desc: desc, handler: h}
	r.order = append(r.order, desc.Name)

	return nil
}

// Names returns all registered module names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Descriptor returns the descriptor of the named module.
func (r *Registry) Descriptor(name string) (ModuleDescriptor, error) {
	entry, ok := r.modules[name]
	if !ok {
		return ModuleDescriptor{}, UnknownModuleError{Name: name}
	}

	return entry.desc, nil
}

// handlerOf returns the handler of a module known to be registered.
func (r *Registry) handlerOf(name string) Handler {
	return r.modules[name].handler
}

// A DependencyEdge records that the producer module must activate before the
// consumer module. Object names the data-bus entry that induced the edge; it
// is empty for explicit RunAfter edges.
type DependencyEdge struct {
	Producer string `json:"producer"`
	Consumer string `json:"consumer"`
	Object   string `json:"object,omitempty"`
}

// An UnmatchedInput records a declared input with no producer among the
// selected modules. It is a diagnostic, not an error: the object may be
// supplied externally before the simulation starts.
type UnmatchedInput struct {
	Module string `json:"module"`
	Object string `json:"object"`
}

// A DependencyGraph is the read-only structure of a module selection, for
// external diagnostics and visualization tooling.
type DependencyGraph struct {
	Modules         []string         `json:"modules"`
	Edges           []DependencyEdge `json:"edges"`
	UnmatchedInputs []UnmatchedInput `json:"unmatched_inputs,omitempty"`
}

// Graph builds the dependency graph of the selected modules. An edge runs
// from a module that declares an output to every selected module that
// declares the same object name as an input. RunAfter declarations add edges
// that carry no object name.
func (r *Registry) Graph(names []string) (DependencyGraph, error) {
	g := DependencyGraph{Modules: names}

	producers := make(map[string][]string)
	selected := make(map[string]bool)

	for _, name := range names {
		entry, ok := r.modules[name]
		if !ok {
			return DependencyGraph{}, UnknownModuleError{Name: name}
		}

		if selected[name] {
			return DependencyGraph{}, DuplicateModuleNameError{Name: name}
		}

		selected[name] = true

		for _, out := range entry.desc.Outputs {
			producers[out.Name] = append(producers[out.Name], name)
		}
	}

	seen := make(map[DependencyEdge]bool)
	addEdge := func(e DependencyEdge) {
		if e.Producer == e.Consumer || seen[e] {
			return
		}
		seen[e] = true
		g.Edges = append(g.Edges, e)
	}

	for _, name := range names {
		desc := r.modules[name].desc

		for _, in := range desc.Inputs {
			if len(producers[in.Name]) == 0 {
				g.UnmatchedInputs = append(g.UnmatchedInputs,
					UnmatchedInput{Module: name, Object: in.Name})
				continue
			}

			for _, p := range producers[in.Name] {
				addEdge(DependencyEdge{
					Producer: p,
					Consumer: name,
					Object:   in.Name,
				})
			}
		}

		for _, pred := range desc.RunAfter {
			if !selected[pred] {
				r.log.WithFields(logrus.Fields{
					"module":    name,
					"run_after": pred,
				}).Warn("run-after target is not part of the simulation")
				continue
			}

			addEdge(DependencyEdge{Producer: pred, Consumer: name})
		}
	}

	for _, u := range g.UnmatchedInputs {
		r.log.WithFields(logrus.Fields{
			"module": u.Module,
			"object": u.Object,
		}).Warn("declared input has no producer, " +
			"expecting the object to be supplied externally")
	}

	return g, nil
}

// ResolveOrder returns the selected module names sorted so that every
// producer precedes its consumers. The sort is stable: modules that no edge
// forces apart keep the relative order of the names argument. A cycle in the
// graph fails with CyclicDependencyError naming the participating modules.
func (r *Registry) ResolveOrder(names []string) ([]string, error) {
	g, err := r.Graph(names)
	if err != nil {
		return nil, err
	}

	return sortGraph(g)
}

// sortGraph runs a stable Kahn topological sort over the dependency graph.
func sortGraph(g DependencyGraph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Modules))
	succ := make(map[string][]string)

	for _, m := range g.Modules {
		inDegree[m] = 0
	}

	for _, e := range g.Edges {
		inDegree[e.Consumer]++
		succ[e.Producer] = append(succ[e.Producer], e.Consumer)
	}

	order := make([]string, 0, len(g.Modules))
	emitted := make(map[string]bool, len(g.Modules))

	for len(order) < len(g.Modules) {
		progressed := false

		// Scanning in the given order on every pass keeps the sort stable:
		// among currently unconstrained modules, the one listed first wins.
		for _, m := range g.Modules {
			if emitted[m] || inDegree[m] > 0 {
				continue
			}

			emitted[m] = true
			order = append(order, m)

			for _, s := range succ[m] {
				inDegree[s]--
			}

			progressed = true
			break
		}

		if !progressed {
			return nil, CyclicDependencyError{
				Members: cycleMembers(g, emitted),
			}
		}
	}

	return order, nil
}

// cycleMembers narrows the not-yet-emitted modules down to the ones that sit
// on a dependency cycle, by repeatedly trimming nodes without incoming or
// without outgoing edges inside the remainder.
func cycleMembers(g DependencyGraph, emitted map[string]bool) []string {
	remaining := make(map[string]bool)
	for _, m := range g.Modules {
		if !emitted[m] {
			remaining[m] = true
		}
	}

	for {
		trimmed := false

		for m := range remaining {
			hasIn, hasOut := false, false

			for _, e := range g.Edges {
				if !remaining[e.Producer] || !remaining[e.Consumer] {
					continue
				}
				if e.Consumer == m {
					hasIn = true
				}
				if e.Producer == m {
					hasOut = true
				}
			}

			if !hasIn || !hasOut {
				delete(remaining, m)
				trimmed = true
			}
		}

		if !trimmed {
			break
		}
	}

	members := make([]string, 0, len(remaining))
	for _, m := range g.Modules {
		if remaining[m] {
			members = append(members, m)
		}
	}

	return members
}
