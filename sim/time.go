package sim

// VTime defines a point in simulated time. Simulated time is a real number, so
// fractional times such as 1.5 are valid and are never rounded or coalesced by
// the engine. The unit (e.g., "year", "second") is diagnostic metadata carried
// by the simulation configuration and has no effect on scheduling.
type VTime float64

// TimeTeller can be used to get the current simulated time.
type TimeTeller interface {
	CurrentTime() VTime
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event) error
}
