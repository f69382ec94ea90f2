// Package sim implements a discrete-event simulation core for composing
// interdependent modules over simulated time.
//
// A module declares the objects it reads and writes on a shared data bus,
// its parameter defaults, and a handler that dispatches its events. The
// registry resolves the module activation order from the declared inputs and
// outputs, the scheduler seeds one init event per module at the start time,
// and the main loop pops events in (time, insertion) order, advances the
// clock, and dispatches each event to its owning module. Handlers mutate the
// shared state and schedule follow-up events; the loop runs until the queue
// drains or the end time is passed.
package sim
