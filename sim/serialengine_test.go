package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/sim"
)

type recordingHandler struct {
	times []sim.VTimeInSec
}

func (h *recordingHandler) Handle(e sim.Event) error {
	h.times = append(h.times, e.Time())
	return nil
}

var _ = Describe("SerialEngine", func() {
	var (
		engine  *sim.SerialEngine
		handler *recordingHandler
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		handler = &recordingHandler{}
	})

	It("should run events in time order", func() {
		engine.Schedule(sim.NewEventBase(3e-9, handler))
		engine.Schedule(sim.NewEventBase(1e-9, handler))
		engine.Schedule(sim.NewEventBase(2e-9, handler))

		Expect(engine.Run()).To(Succeed())

		Expect(handler.times).To(Equal([]sim.VTimeInSec{
			1e-9, 2e-9, 3e-9,
		}))
	})

	It("should advance the clock to the handled event", func() {
		engine.Schedule(sim.NewEventBase(5e-9, handler))

		Expect(engine.Run()).To(Succeed())
		Expect(float64(engine.Now())).To(BeNumerically("~", 5e-9, 1e-12))
	})

	It("should run events scheduled while running", func() {
		chained := &chainHandler{engine: engine}
		engine.Schedule(sim.NewEventBase(1e-9, chained))

		Expect(engine.Run()).To(Succeed())
		Expect(chained.count).To(Equal(3))
	})
})

type chainHandler struct {
	engine *sim.SerialEngine
	count  int
}

func (h *chainHandler) Handle(e sim.Event) error {
	h.count++
	if h.count < 3 {
		h.engine.Schedule(sim.NewEventBase(e.Time()+1e-9, h))
	}

	return nil
}
