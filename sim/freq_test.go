package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/sim"
)

var _ = Describe("Freq", func() {
	freq := 1 * sim.GHz

	It("should convert time to cycles", func() {
		Expect(freq.Cycle(0)).To(Equal(uint64(0)))
		Expect(freq.Cycle(4e-9)).To(Equal(uint64(4)))
	})

	It("should find the tick after a time", func() {
		Expect(float64(freq.NextTick(0))).
			To(BeNumerically("~", 1e-9, 1e-12))
		Expect(float64(freq.NextTick(1.5e-9))).
			To(BeNumerically("~", 2e-9, 1e-12))
	})

	It("should find the tick at or after a time", func() {
		Expect(float64(freq.ThisTick(2e-9))).
			To(BeNumerically("~", 2e-9, 1e-12))
		Expect(float64(freq.ThisTick(2.2e-9))).
			To(BeNumerically("~", 3e-9, 1e-12))
	})

	It("should jump n cycles ahead", func() {
		Expect(float64(freq.NCyclesLater(10, 2e-9))).
			To(BeNumerically("~", 12e-9, 1e-12))
	})
})
