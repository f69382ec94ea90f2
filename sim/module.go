package sim

// An ObjectSpec names one entry of the inter-module data bus together with a
// free-form type tag. The tag is diagnostic metadata; dependency edges are
// built by name only.
type ObjectSpec struct {
	Name string
	Type string
}

// A ModuleDescriptor declares the metadata of one module: its name, the
// objects it consumes and produces, its parameter defaults, and any explicit
// ordering constraints. Descriptors are immutable after registration.
type ModuleDescriptor struct {
	Name string

	// Inputs lists the objects the module reads. A producer of an input, if
	// one is registered, is activated before this module at init time.
	Inputs []ObjectSpec

	// Outputs lists the objects the module writes.
	Outputs []ObjectSpec

	// Params maps parameter names to default values. Run-level overrides
	// shadow these defaults.
	Params map[string]any

	// RunAfter adds explicit ordering edges on top of the input/output
	// matching, for modules whose ordering requirement is not visible in the
	// data bus.
	RunAfter []string
}

// A Context is handed to a handler on every dispatch. It exposes the shared
// state and lets the handler schedule follow-up events at or after the current
// clock.
type Context struct {
	state *State
	sched *Scheduler
}

// State returns the shared simulation state.
func (c Context) State() *State {
	return c.state
}

// Now returns the current simulated time.
func (c Context) Now() VTime {
	return c.sched.CurrentTime()
}

// Schedule inserts a follow-up event into the queue. Scheduling at a time
// earlier than the current clock fails with CausalityViolationError and, even
// if the handler discards the error, aborts the run once the handler returns.
func (c Context) Schedule(e Event) error {
	return c.sched.Schedule(e)
}

// EndTime returns the configured end of the simulation. Events scheduled
// beyond it are accepted but never dispatched.
func (c Context) EndTime() VTime {
	return c.sched.endTime
}

// A Handler dispatches the events of one module. The engine calls Handle once
// per popped event, on a single goroutine, and waits for it to return before
// popping the next event.
//
// Returning an UnknownEventTypeError marks the event type as unhandled; the
// engine logs a warning and keeps running. Returning any other error aborts
// the run.
type Handler interface {
	Handle(ctx Context, e Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx Context, e Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx Context, e Event) error {
	return f(ctx, e)
}

// A DispatchTable is a Handler that routes events by type. A missing entry
// yields UnknownEventTypeError, which the engine downgrades to a warning.
type DispatchTable map[string]HandlerFunc

// Handle routes the event to the entry matching its type.
func (t DispatchTable) Handle(ctx Context, e Event) error {
	f, ok := t[e.Type]
	if !ok {
		return UnknownEventTypeError{Module: e.Module, EventType: e.Type}
	}

	return f(ctx, e)
}
