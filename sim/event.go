package sim

import "github.com/rs/xid"

// EventTypeInit is the reserved event type that every module must handle. The
// engine schedules one init event per module when a simulation is seeded.
const EventTypeInit = "init"

// An Event is something going to happen in the future. Events are immutable
// values: rescheduling means creating and scheduling a new Event, never
// modifying one already in the queue.
type Event struct {
	// ID uniquely identifies the event across the whole simulation.
	ID string

	// Time is when the event should happen.
	Time VTime

	// Module names the module that owns the event. The event is always
	// dispatched to the handler of this module.
	Module string

	// Type selects which branch of the module's handler fires. The type
	// "init" is reserved.
	Type string

	// Payload carries optional user data. The engine never inspects it.
	Payload any

	// seq is the insertion sequence stamped by the event queue. Among events
	// with identical times, the event with the smaller seq fires first.
	seq uint64
}

// MakeEvent creates an Event owned by the named module.
func MakeEvent(t VTime, module, eventType string) Event {
	return Event{
		ID:     xid.New().String(),
		Time:   t,
		Module: module,
		Type:   eventType,
	}
}

// MakeEventWithPayload creates an Event carrying a payload.
func MakeEventWithPayload(
	t VTime,
	module, eventType string,
	payload any,
) Event {
	e := MakeEvent(t, module, eventType)
	e.Payload = payload
	return e
}

// Seq returns the insertion sequence assigned when the event entered the
// queue. It is 0 for events that have not been scheduled yet.
func (e Event) Seq() uint64 {
	return e.seq
}
