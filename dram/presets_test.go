package dram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/dram"
	"github.com/sarchlab/dramctrl/sim"
)

var _ = Describe("Presets", func() {
	It("should build a working controller from every preset", func() {
		for _, name := range dram.PresetNames() {
			b, err := dram.PresetByName(name)
			Expect(err).ToNot(HaveOccurred())

			engine := sim.NewSerialEngine()
			ctrl := b.WithEngine(engine).Build(name)
			Expect(ctrl).ToNot(BeNil())

			done := false
			Expect(ctrl.Submit(0, 64, false, nil,
				func(dram.Completion) { done = true })).To(Succeed())
			Expect(engine.Run()).To(Succeed())
			Expect(done).To(BeTrue(), name)
		}
	})

	It("should reject unknown preset names", func() {
		_, err := dram.PresetByName("DDR9_9999")
		Expect(err).To(HaveOccurred())
	})

	It("should parse the policy names", func() {
		p, err := dram.ParsePagePolicy("close_adaptive")
		Expect(err).ToNot(HaveOccurred())
		Expect(p).To(Equal(dram.PagePolicyCloseAdaptive))

		s, err := dram.ParseSchedulingPolicy("fcfs")
		Expect(err).ToNot(HaveOccurred())
		Expect(s).To(Equal(dram.SchedFCFS))

		m, err := dram.ParseAddressMapping("RoCoRaBaCh")
		Expect(err).ToNot(HaveOccurred())
		Expect(m).To(Equal(dram.AddrMapRoCoRaBaCh))

		_, err = dram.ParsePagePolicy("half_open")
		Expect(err).To(HaveOccurred())
	})
})
