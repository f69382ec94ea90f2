package sim

import (
	"errors"
	"fmt"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func newTestScheduler(
	order []string,
	handlers map[string]Handler,
	startTime, endTime VTime,
) *Scheduler {
	s := NewScheduler(NewState(startTime), order, handlers, startTime, endTime)
	return s
}

var _ = ginkgo.Describe("Scheduler", func() {
	var mockCtrl *gomock.Controller

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should seed init events in activation order", func() {
		h1 := NewMockHandler(mockCtrl)
		h2 := NewMockHandler(mockCtrl)

		s := newTestScheduler(
			[]string{"first", "second"},
			map[string]Handler{"first": h1, "second": h2},
			0, 10)

		firstInit := h1.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx Context, e Event) error {
				Expect(e.Type).To(Equal(EventTypeInit))
				Expect(e.Time).To(Equal(VTime(0)))
				return nil
			})
		h2.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx Context, e Event) error {
				Expect(e.Type).To(Equal(EventTypeInit))
				return nil
			}).
			After(firstInit)

		Expect(s.Seed()).To(Succeed())
		Expect(s.SchedState()).To(Equal(SchedulerSeeded))
		Expect(s.Run()).To(Succeed())
		Expect(s.SchedState()).To(Equal(SchedulerFinished))
	})

	ginkgo.It("should dispatch same-time events in insertion order", func() {
		var dispatched []string

		record := func(label string) HandlerFunc {
			return func(ctx Context, e Event) error {
				if e.Type == EventTypeInit {
					return ctx.Schedule(MakeEvent(5.0, e.Module, "act"))
				}
				dispatched = append(dispatched, label)
				return nil
			}
		}

		s := newTestScheduler(
			[]string{"a", "b"},
			map[string]Handler{
				"a": record("a"),
				"b": record("b"),
			},
			0, 10)

		Expect(s.Seed()).To(Succeed())
		Expect(s.Run()).To(Succeed())

		Expect(dispatched).To(Equal([]string{"a", "b"}))
	})

	ginkgo.It("should self-reschedule with fractional offsets and honor the end time",
		func() {
			var times []VTime

			handler := DispatchTable{
				EventTypeInit: func(ctx Context, e Event) error {
					return ctx.Schedule(MakeEvent(e.Time, e.Module, "plot"))
				},
				"plot": func(ctx Context, e Event) error {
					times = append(times, e.Time)
					return ctx.Schedule(
						MakeEvent(e.Time+1.5, e.Module, "plot"))
				},
			}

			s := newTestScheduler(
				[]string{"plotter"},
				map[string]Handler{"plotter": handler},
				1.0, 4.0)

			Expect(s.Seed()).To(Succeed())
			Expect(s.Run()).To(Succeed())

			Expect(times).To(Equal([]VTime{1.0, 2.5, 4.0}))
			Expect(s.SchedState()).To(Equal(SchedulerFinished))
		})

	ginkgo.It("should drain when no more events are scheduled", func() {
		h := NewMockHandler(mockCtrl)
		h.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(nil)

		s := newTestScheduler(
			[]string{"only"},
			map[string]Handler{"only": h},
			0, 100)

		Expect(s.Seed()).To(Succeed())
		Expect(s.Run()).To(Succeed())
	})

	ginkgo.It("should abort when a handler schedules into the past", func() {
		laterHandled := false

		handler := DispatchTable{
			EventTypeInit: func(ctx Context, e Event) error {
				err := ctx.Schedule(MakeEvent(2.0, e.Module, "later"))
				Expect(err).ToNot(HaveOccurred())
				return ctx.Schedule(MakeEvent(3.0, e.Module, "violator"))
			},
			"violator": func(ctx Context, e Event) error {
				// The handler swallows the error on purpose; the run must
				// abort anyway.
				_ = ctx.Schedule(MakeEvent(1.0, e.Module, "past"))
				return nil
			},
			"later": func(ctx Context, e Event) error {
				laterHandled = true
				return nil
			},
		}

		s := newTestScheduler(
			[]string{"m"},
			map[string]Handler{"m": handler},
			0, 10)

		// "later" at 2.0 fires before "violator" at 3.0; events after the
		// violation are never processed.
		sAlt := newTestScheduler(
			[]string{"m"},
			map[string]Handler{"m": DispatchTable{
				EventTypeInit: func(ctx Context, e Event) error {
					Expect(ctx.Schedule(
						MakeEvent(3.0, e.Module, "violator"))).To(Succeed())
					return ctx.Schedule(MakeEvent(4.0, e.Module, "later"))
				},
				"violator": handler["violator"],
				"later":    handler["later"],
			}},
			0, 10)

		Expect(s.Seed()).To(Succeed())
		err := s.Run()
		Expect(err).To(HaveOccurred())

		var causality CausalityViolationError
		Expect(errors.As(err, &causality)).To(BeTrue())
		Expect(causality.Attempted).To(Equal(VTime(1.0)))
		Expect(causality.Now).To(Equal(VTime(3.0)))

		laterHandled = false
		Expect(sAlt.Seed()).To(Succeed())
		Expect(sAlt.Run()).To(HaveOccurred())
		Expect(laterHandled).To(BeFalse())
	})

	ginkgo.It("should warn and continue on unknown event types", func() {
		afterUnknownHandled := false

		handler := DispatchTable{
			EventTypeInit: func(ctx Context, e Event) error {
				Expect(ctx.Schedule(
					MakeEvent(1.0, e.Module, "no-such-type"))).To(Succeed())
				return ctx.Schedule(MakeEvent(2.0, e.Module, "known"))
			},
			"known": func(ctx Context, e Event) error {
				afterUnknownHandled = true
				return nil
			},
		}

		s := newTestScheduler(
			[]string{"m"},
			map[string]Handler{"m": handler},
			0, 10)

		Expect(s.Seed()).To(Succeed())
		Expect(s.Run()).To(Succeed())
		Expect(afterUnknownHandled).To(BeTrue())
	})

	ginkgo.It("should propagate handler errors with module and event context", func() {
		boom := fmt.Errorf("object store corrupted")

		h := NewMockHandler(mockCtrl)
		h.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(boom)

		s := newTestScheduler(
			[]string{"broken"},
			map[string]Handler{"broken": h},
			0, 10)

		Expect(s.Seed()).To(Succeed())
		err := s.Run()
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("broken"))
	})

	ginkgo.It("should propagate lookup errors out of handlers", func() {
		handler := DispatchTable{
			EventTypeInit: func(ctx Context, e Event) error {
				_, err := ctx.State().Get("never-written")
				return err
			},
		}

		s := newTestScheduler(
			[]string{"reader"},
			map[string]Handler{"reader": handler},
			0, 10)

		Expect(s.Seed()).To(Succeed())
		err := s.Run()

		var undefined UndefinedObjectError
		Expect(errors.As(err, &undefined)).To(BeTrue())
		Expect(undefined.Name).To(Equal("never-written"))
	})

	ginkgo.It("should reject scheduling for unknown modules", func() {
		s := newTestScheduler(nil, map[string]Handler{}, 0, 10)

		err := s.Schedule(MakeEvent(1.0, "ghost", "tick"))

		var unknown UnknownModuleError
		Expect(errors.As(err, &unknown)).To(BeTrue())
	})

	ginkgo.It("should refuse to run twice", func() {
		h := NewMockHandler(mockCtrl)
		h.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(nil)

		s := newTestScheduler(
			[]string{"m"},
			map[string]Handler{"m": h},
			0, 10)

		Expect(s.Seed()).To(Succeed())
		Expect(s.Run()).To(Succeed())

		err := s.Run()
		var reused SimulationReusedError
		Expect(errors.As(err, &reused)).To(BeTrue())
	})

	ginkgo.It("should call simulation end handlers with the final state", func() {
		h := NewMockHandler(mockCtrl)
		h.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx Context, e Event) error {
				ctx.State().Set("result", 42)
				return nil
			})

		endHandler := NewMockSimulationEndHandler(mockCtrl)
		endHandler.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			Do(func(now VTime, state *State) {
				v, err := state.Get("result")
				Expect(err).ToNot(HaveOccurred())
				Expect(v).To(Equal(42))
			})

		s := newTestScheduler(
			[]string{"m"},
			map[string]Handler{"m": h},
			0, 10)
		s.RegisterSimulationEndHandler(endHandler)

		Expect(s.Seed()).To(Succeed())
		Expect(s.Run()).To(Succeed())
	})

	ginkgo.It("should invoke hooks around each dispatch", func() {
		h := NewMockHandler(mockCtrl)
		h.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(nil)

		s := newTestScheduler(
			[]string{"m"},
			map[string]Handler{"m": h},
			0, 10)

		positions := make(map[string]int)
		s.AcceptHook(hookFunc(func(ctx HookCtx) {
			positions[ctx.Pos.Name]++
		}))

		Expect(s.Seed()).To(Succeed())
		Expect(s.Run()).To(Succeed())

		Expect(positions["BeforeEvent"]).To(Equal(1))
		Expect(positions["AfterEvent"]).To(Equal(1))
		Expect(positions["SimEnd"]).To(Equal(1))
	})
})

type hookFunc func(ctx HookCtx)

func (f hookFunc) Func(ctx HookCtx) {
	f(ctx)
}
