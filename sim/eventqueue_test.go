package sim

import (
	"math/rand"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("EventQueueImpl", func() {
	var queue *EventQueueImpl

	ginkgo.BeforeEach(func() {
		queue = NewEventQueue()
	})

	ginkgo.It("should pop in non-decreasing time order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			queue.Push(MakeEvent(VTime(rand.Float64()), "m", "tick"))
		}

		now := VTime(-1)
		for i := 0; i < numEvents; i++ {
			event, err := queue.Pop()
			Expect(err).ToNot(HaveOccurred())
			Expect(event.Time >= now).To(BeTrue())
			now = event.Time
		}
	})

	ginkgo.It("should break same-time ties by insertion order", func() {
		first := queue.Push(MakeEvent(5.0, "a", "tick"))
		second := queue.Push(MakeEvent(5.0, "b", "tick"))
		third := queue.Push(MakeEvent(5.0, "c", "tick"))

		Expect(first.Seq() < second.Seq()).To(BeTrue())
		Expect(second.Seq() < third.Seq()).To(BeTrue())

		popped1, _ := queue.Pop()
		popped2, _ := queue.Pop()
		popped3, _ := queue.Pop()

		Expect(popped1.Module).To(Equal("a"))
		Expect(popped2.Module).To(Equal("b"))
		Expect(popped3.Module).To(Equal("c"))
	})

	ginkgo.It("should keep insertion order under interleaved times", func() {
		queue.Push(MakeEvent(2.0, "late", "tick"))
		queue.Push(MakeEvent(1.0, "early-a", "tick"))
		queue.Push(MakeEvent(1.0, "early-b", "tick"))

		e1, _ := queue.Pop()
		e2, _ := queue.Pop()
		e3, _ := queue.Pop()

		Expect(e1.Module).To(Equal("early-a"))
		Expect(e2.Module).To(Equal("early-b"))
		Expect(e3.Module).To(Equal("late"))
	})

	ginkgo.It("should round-trip events at strictly increasing times", func() {
		numEvents := 50
		for i := 0; i < numEvents; i++ {
			queue.Push(MakeEvent(VTime(i)+0.5, "m", "tick"))
		}

		for i := 0; i < numEvents; i++ {
			event, err := queue.Pop()
			Expect(err).ToNot(HaveOccurred())
			Expect(event.Time).To(Equal(VTime(i) + 0.5))
		}

		Expect(queue.Len()).To(Equal(0))
	})

	ginkgo.It("should not round fractional times", func() {
		queue.Push(MakeEvent(1.1, "b", "tick"))
		queue.Push(MakeEvent(1.05, "a", "tick"))

		e1, _ := queue.Pop()
		e2, _ := queue.Pop()

		Expect(e1.Module).To(Equal("a"))
		Expect(e2.Module).To(Equal("b"))
	})

	ginkgo.It("should peek without removing", func() {
		queue.Push(MakeEvent(3.0, "m", "tick"))

		peeked1, err := queue.Peek()
		Expect(err).ToNot(HaveOccurred())

		peeked2, err := queue.Peek()
		Expect(err).ToNot(HaveOccurred())

		Expect(peeked1).To(Equal(peeked2))
		Expect(queue.Len()).To(Equal(1))
	})

	ginkgo.It("should fail to pop when empty", func() {
		_, err := queue.Pop()
		Expect(err).To(BeAssignableToTypeOf(EmptyQueueError{}))
	})

	ginkgo.It("should fail to peek when empty", func() {
		_, err := queue.Peek()
		Expect(err).To(BeAssignableToTypeOf(EmptyQueueError{}))
	})
})
