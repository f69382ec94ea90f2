package datarecording

import (
	"fmt"

	"github.com/modsim-lab/modsim/sim"
)

// A DispatchEntry is one row of the dispatch trace: one event popped from the
// queue and handed to its module.
type DispatchEntry struct {
	Time      float64
	Seq       uint64
	Module    string
	EventType string
	EventID   string
}

// A RunEntry describes the recorded simulation run.
type RunEntry struct {
	SimulationID string
	StartTime    float64
	EndTime      float64
	TimeUnit     string
}

// An ObjectEntry is a snapshot of one shared object at the end of the run.
type ObjectEntry struct {
	Name  string
	Value string
}

// A TraceRecorder records every dispatched event and the final object store
// of a simulation. It hooks into the scheduler for dispatches and registers
// as a simulation end handler for the final snapshot.
type TraceRecorder struct {
	recorder DataRecorder
}

// AttachTraceRecorder wires a TraceRecorder to the simulation.
func AttachTraceRecorder(
	s *sim.Simulation,
	recorder DataRecorder,
) *TraceRecorder {
	t := &TraceRecorder{recorder: recorder}

	recorder.CreateTable("run", RunEntry{})
	recorder.CreateTable("dispatches", DispatchEntry{})
	recorder.CreateTable("objects", ObjectEntry{})

	recorder.InsertData("run", RunEntry{
		SimulationID: s.ID(),
		StartTime:    float64(s.Scheduler().StartTime()),
		EndTime:      float64(s.Scheduler().EndTime()),
		TimeUnit:     s.TimeUnit(),
	})

	s.Scheduler().AcceptHook(t)
	s.Scheduler().RegisterSimulationEndHandler(t)

	return t
}

// Func records one dispatch.
func (t *TraceRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(sim.Event)
	if !ok {
		return
	}

	t.recorder.InsertData("dispatches", DispatchEntry{
		Time:      float64(evt.Time),
		Seq:       evt.Seq(),
		Module:    evt.Module,
		EventType: evt.Type,
		EventID:   evt.ID,
	})
}

// Handle snapshots the final object store and flushes the trace.
func (t *TraceRecorder) Handle(now sim.VTime, state *sim.State) {
	for _, name := range state.ObjectNames() {
		v, err := state.Get(name)
		if err != nil {
			continue
		}

		t.recorder.InsertData("objects", ObjectEntry{
			Name:  name,
			Value: fmt.Sprint(v),
		})
	}

	t.recorder.Flush()
}
