package sim

import (
	"fmt"
	"strings"
)

// EmptyQueueError is returned when popping or peeking an empty event queue.
type EmptyQueueError struct{}

func (e EmptyQueueError) Error() string {
	return "event queue is empty"
}

// CausalityViolationError is returned when a handler schedules an event at a
// time strictly earlier than the current clock. It is a programming error in
// the handler and aborts the run.
type CausalityViolationError struct {
	Module    string
	EventType string
	Attempted VTime
	Now       VTime
}

func (e CausalityViolationError) Error() string {
	return fmt.Sprintf(
		"module %s scheduled event %q at %.10f, earlier than current time %.10f",
		e.Module, e.EventType, e.Attempted, e.Now)
}

// ClockRegressionError is returned when the clock is asked to move backward.
type ClockRegressionError struct {
	Attempted VTime
	Now       VTime
}

func (e ClockRegressionError) Error() string {
	return fmt.Sprintf(
		"cannot move clock back from %.10f to %.10f", e.Now, e.Attempted)
}

// UndefinedObjectError is returned when reading an object that no module or
// external supplier has written yet.
type UndefinedObjectError struct {
	Name string
}

func (e UndefinedObjectError) Error() string {
	return fmt.Sprintf("object %q is not defined", e.Name)
}

// UndefinedParameterError is returned when a parameter has neither a run-level
// override nor a module-declared default.
type UndefinedParameterError struct {
	Module string
	Param  string
}

func (e UndefinedParameterError) Error() string {
	return fmt.Sprintf(
		"parameter %q of module %s is not defined", e.Param, e.Module)
}

// CyclicDependencyError is returned when the declared inputs and outputs of
// the selected modules form a dependency cycle. Members lists the modules on
// the cycle so the registration can be fixed.
type CyclicDependencyError struct {
	Members []string
}

func (e CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic module dependency involving [%s]",
		strings.Join(e.Members, ", "))
}

// UnknownModuleError is returned when a simulation configuration names a
// module that was never registered.
type UnknownModuleError struct {
	Name string
}

func (e UnknownModuleError) Error() string {
	return fmt.Sprintf("module %q is not registered", e.Name)
}

// DuplicateModuleNameError is returned when registering a module under a name
// that is already taken.
type DuplicateModuleNameError struct {
	Name string
}

func (e DuplicateModuleNameError) Error() string {
	return fmt.Sprintf("module %q is already registered", e.Name)
}

// UnknownEventTypeError signals that a module's handler has no branch for the
// dispatched event type. The engine treats it as a warning and keeps running;
// every other handler error aborts the run.
type UnknownEventTypeError struct {
	Module    string
	EventType string
}

func (e UnknownEventTypeError) Error() string {
	return fmt.Sprintf(
		"module %s does not handle event type %q", e.Module, e.EventType)
}

// SimulationReusedError is returned when Run is called on a simulation that
// already ran. Re-running requires a fresh simulation.
type SimulationReusedError struct {
	State SchedulerState
}

func (e SimulationReusedError) Error() string {
	return fmt.Sprintf(
		"simulation cannot run again, scheduler is %s", e.State)
}
