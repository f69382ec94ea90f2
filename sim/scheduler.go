package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// SchedulerState enumerates the phases of the engine's life.
type SchedulerState int

// The scheduler moves Uninitialized → Seeded → Running, terminates the loop
// in Drained or TimeLimitReached, and settles in Finished.
const (
	SchedulerUninitialized SchedulerState = iota
	SchedulerSeeded
	SchedulerRunning
	SchedulerDrained
	SchedulerTimeLimitReached
	SchedulerFinished
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerUninitialized:
		return "uninitialized"
	case SchedulerSeeded:
		return "seeded"
	case SchedulerRunning:
		return "running"
	case SchedulerDrained:
		return "drained"
	case SchedulerTimeLimitReached:
		return "time-limit-reached"
	case SchedulerFinished:
		return "finished"
	}

	return "unknown"
}

// A SimulationEndHandler is a handler that is called after the simulation
// ends, receiving the final clock and the final shared state.
type SimulationEndHandler interface {
	Handle(now VTime, state *State)
}

// A Scheduler owns the event queue and the shared state and drives the main
// loop: pop the earliest event, advance the clock, dispatch to the owning
// module's handler, repeat until the queue drains or an event passes the end
// time.
//
// Execution is strictly single threaded and cooperative. One event runs to
// completion before the next is popped, so two events at the same simulated
// time execute in queue-insertion order and runs are reproducible.
type Scheduler struct {
	HookableBase

	log   logrus.FieldLogger
	state *State
	queue EventQueue

	handlers map[string]Handler
	order    []string

	startTime VTime
	endTime   VTime

	schedState     SchedulerState
	schedStateLock sync.Mutex
	causalityErr   error

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewScheduler creates a Scheduler over a fresh state and queue. The order
// argument is the resolved activation order; seeding follows it.
func NewScheduler(
	state *State,
	order []string,
	handlers map[string]Handler,
	startTime, endTime VTime,
) *Scheduler {
	s := &Scheduler{
		log:       logrus.StandardLogger(),
		state:     state,
		queue:     NewEventQueue(),
		handlers:  handlers,
		order:     order,
		startTime: startTime,
		endTime:   endTime,
	}

	return s
}

// SetLogger redirects the scheduler's dispatch warnings.
func (s *Scheduler) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// Seed schedules one init event per module at the start time, in activation
// order. Earlier-activated modules therefore fire first under the same-time
// tie-break rule.
func (s *Scheduler) Seed() error {
	if state := s.SchedState(); state != SchedulerUninitialized {
		return SimulationReusedError{State: state}
	}

	for _, name := range s.order {
		if err := s.Schedule(MakeEvent(s.startTime, name, EventTypeInit)); err != nil {
			return err
		}
	}

	s.setSchedState(SchedulerSeeded)

	return nil
}

// Schedule registers an event to happen in the future. Scheduling at a time
// strictly earlier than the current clock fails with CausalityViolationError.
// The violation also aborts the run once the running handler returns, so a
// handler cannot continue past it by discarding the error.
func (s *Scheduler) Schedule(evt Event) error {
	if evt.Time < s.state.Now() {
		err := CausalityViolationError{
			Module:    evt.Module,
			EventType: evt.Type,
			Attempted: evt.Time,
			Now:       s.state.Now(),
		}

		if s.causalityErr == nil {
			s.causalityErr = err
		}

		return err
	}

	if _, known := s.handlers[evt.Module]; !known {
		return UnknownModuleError{Name: evt.Module}
	}

	s.queue.Push(evt)

	return nil
}

// Run processes events until the queue drains or the next event passes the
// end time. It can complete only once; a second call fails with
// SimulationReusedError.
func (s *Scheduler) Run() error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	if state := s.SchedState(); state != SchedulerSeeded {
		return SimulationReusedError{State: state}
	}

	s.setSchedState(SchedulerRunning)

	for {
		s.pauseLock.Lock()

		if s.queue.Len() == 0 {
			s.setSchedState(SchedulerDrained)
			s.pauseLock.Unlock()
			break
		}

		evt, err := s.queue.Pop()
		if err != nil {
			s.pauseLock.Unlock()
			return err
		}

		if evt.Time > s.endTime {
			// The event is discarded, not executed.
			s.setSchedState(SchedulerTimeLimitReached)
			s.pauseLock.Unlock()
			break
		}

		if err := s.dispatch(evt); err != nil {
			s.setSchedState(SchedulerFinished)
			s.pauseLock.Unlock()
			return err
		}

		s.pauseLock.Unlock()
	}

	s.finish()

	return nil
}

// dispatch advances the clock to the event's time and runs the owning
// module's handler.
func (s *Scheduler) dispatch(evt Event) error {
	if err := s.state.advanceClockTo(evt.Time); err != nil {
		return fmt.Errorf("dispatching %s event %q of module %s: %w",
			formatTime(evt.Time), evt.Type, evt.Module, err)
	}

	hookCtx := HookCtx{
		Domain: s,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	s.InvokeHook(hookCtx)

	handler := s.handlers[evt.Module]
	err := handler.Handle(Context{state: s.state, sched: s}, evt)

	var unknownType UnknownEventTypeError
	switch {
	case err == nil:
	case errors.As(err, &unknownType):
		s.log.WithFields(logrus.Fields{
			"module": unknownType.Module,
			"event":  unknownType.EventType,
			"time":   float64(evt.Time),
		}).Warn("event type is not handled by the module")
	default:
		return fmt.Errorf("handling %s event %q of module %s: %w",
			formatTime(evt.Time), evt.Type, evt.Module, err)
	}

	if s.causalityErr != nil {
		return s.causalityErr
	}

	hookCtx.Pos = HookPosAfterEvent
	s.InvokeHook(hookCtx)

	return nil
}

// finish settles the scheduler in its terminal state and calls all the
// registered SimulationEndHandlers.
func (s *Scheduler) finish() {
	now := s.state.Now()
	for _, h := range s.simulationEndHandlers {
		h.Handle(now, s.state)
	}

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosSimEnd,
		Item:   s.SchedState(),
	})

	s.setSchedState(SchedulerFinished)
}

// Pause prevents the Scheduler from dispatching more events.
func (s *Scheduler) Pause() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		return
	}

	s.pauseLock.Lock()
	s.isPaused = true
}

// Continue allows the Scheduler to dispatch more events.
func (s *Scheduler) Continue() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if !s.isPaused {
		return
	}

	s.pauseLock.Unlock()
	s.isPaused = false
}

// CurrentTime returns the current simulated time, specifically the time of
// the event being dispatched.
func (s *Scheduler) CurrentTime() VTime {
	return s.state.Now()
}

// StartTime returns the configured simulation start time.
func (s *Scheduler) StartTime() VTime {
	return s.startTime
}

// EndTime returns the configured simulation end time.
func (s *Scheduler) EndTime() VTime {
	return s.endTime
}

// QueueLen returns the number of pending events.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

// SchedState returns the phase the scheduler is in. It is safe to call from
// another goroutine while the simulation runs.
func (s *Scheduler) SchedState() SchedulerState {
	s.schedStateLock.Lock()
	defer s.schedStateLock.Unlock()

	return s.schedState
}

func (s *Scheduler) setSchedState(state SchedulerState) {
	s.schedStateLock.Lock()
	defer s.schedStateLock.Unlock()

	s.schedState = state
}

// RegisterSimulationEndHandler registers a handler that performs some actions
// after the simulation is finished.
func (s *Scheduler) RegisterSimulationEndHandler(h SimulationEndHandler) {
	s.simulationEndHandlers = append(s.simulationEndHandlers, h)
}

func formatTime(t VTime) string {
	return fmt.Sprintf("t=%.10g", float64(t))
}
