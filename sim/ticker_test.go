package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/dramctrl/sim"
	"github.com/sarchlab/dramctrl/sim/mock_sim"
)

var _ = Describe("TickScheduler", func() {
	var (
		mockCtrl  *gomock.Controller
		engine    *mock_sim.MockEngine
		scheduler *sim.TickScheduler
		scheduled []sim.Event
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = mock_sim.NewMockEngine(mockCtrl)
		scheduler = sim.NewTickScheduler(nil, engine, 1*sim.GHz)
		scheduled = nil

		engine.EXPECT().
			Schedule(gomock.Any()).
			Do(func(e sim.Event) { scheduled = append(scheduled, e) }).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should tick the next cycle", func() {
		engine.EXPECT().Now().Return(sim.VTimeInSec(0)).AnyTimes()

		scheduler.TickLater()

		Expect(scheduled).To(HaveLen(1))
		Expect(float64(scheduled[0].Time())).
			To(BeNumerically("~", 1e-9, 1e-12))
	})

	It("should sleep through the requested cycles", func() {
		engine.EXPECT().Now().Return(sim.VTimeInSec(0)).AnyTimes()

		scheduler.TickAfter(10)

		Expect(scheduled).To(HaveLen(1))
		Expect(float64(scheduled[0].Time())).
			To(BeNumerically("~", 1e-8, 1e-12))
	})

	It("should not duplicate a pending earlier tick", func() {
		engine.EXPECT().Now().Return(sim.VTimeInSec(0)).AnyTimes()

		scheduler.TickLater()
		scheduler.TickAfter(10)

		Expect(scheduled).To(HaveLen(1))
	})

	It("should let an earlier tick preempt a sleep", func() {
		engine.EXPECT().Now().Return(sim.VTimeInSec(0)).AnyTimes()

		scheduler.TickAfter(10)
		scheduler.TickLater()

		Expect(scheduled).To(HaveLen(2))
		Expect(float64(scheduled[1].Time())).
			To(BeNumerically("~", 1e-9, 1e-12))
	})

	It("should treat a one-cycle sleep as the next tick", func() {
		engine.EXPECT().Now().Return(sim.VTimeInSec(0)).AnyTimes()

		scheduler.TickAfter(1)

		Expect(scheduled).To(HaveLen(1))
		Expect(float64(scheduled[0].Time())).
			To(BeNumerically("~", 1e-9, 1e-12))
	})
})
