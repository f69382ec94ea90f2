package sim

import (
	"container/heap"
	"sync"
)

// EventQueue is a queue of events ordered by (time, insertion sequence).
// Two events at the same time leave the queue in the order they entered it,
// which makes replays of the same event program deterministic.
type EventQueue interface {
	Push(evt Event) Event
	Pop() (Event, error)
	Peek() (Event, error)
	Len() int
}

// EventQueueImpl provides a thread safe event queue.
type EventQueueImpl struct {
	sync.Mutex
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make([]Event, 0)
	q.nextSeq = 1
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue. It stamps the event with the next
// insertion sequence and returns the stamped copy.
func (q *EventQueueImpl) Push(evt Event) Event {
	q.Lock()
	evt.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.events, evt)
	q.Unlock()
	return evt
}

// Pop removes and returns the event with the smallest (time, sequence).
func (q *EventQueueImpl) Pop() (Event, error) {
	q.Lock()
	defer q.Unlock()

	if q.events.Len() == 0 {
		return Event{}, EmptyQueueError{}
	}

	return heap.Pop(&q.events).(Event), nil
}

// Peek returns the event in front of the queue without removing it from the
// queue.
func (q *EventQueueImpl) Peek() (Event, error) {
	q.Lock()
	defer q.Unlock()

	if q.events.Len() == 0 {
		return Event{}, EmptyQueueError{}
	}

	return q.events[0], nil
}

// Len returns the number of events in the queue.
func (q *EventQueueImpl) Len() int {
	q.Lock()
	l := q.events.Len()
	q.Unlock()
	return l
}

type eventHeap []Event

// Len returns the length of the event queue.
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event. Equal times fall back to the insertion
// sequence.
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}

	return h[i].seq < h[j].seq
}

// Swap changes the position of two events in the event queue.
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue.
func (h *eventHeap) Push(x interface{}) {
	event := x.(Event)
	*h = append(*h, event)
}

// Pop removes and returns the next event to happen.
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	*h = old[0 : n-1]
	return event
}
