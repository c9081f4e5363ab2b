package dram_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/dram"
	"github.com/sarchlab/dramctrl/sim"
)

func testGeometry() dram.DeviceGeometry {
	return dram.DeviceGeometry{
		BusWidth:     64,
		BurstLength:  8,
		NumChannel:   1,
		NumRank:      2,
		BanksPerRank: 4,
		NumRow:       64,
		NumCol:       64,
	}
}

func testTiming() dram.DeviceTiming {
	return dram.DeviceTiming{
		TCK:    1.0,
		TBURST: 4,
		TRCD:   3,
		TCL:    3,
		TRP:    3,
		TRAS:   8,
		TWR:    3,
		TWTR:   2,
		TRTW:   2,
		TRTP:   2,
		TCS:    2,

		TRRD:            2,
		TXAW:            8,
		ActivationLimit: 2,

		TRFC:  10,
		TREFI: 500,

		TXP:    3,
		TXS:    20,
		TCKESR: 3,
	}
}

// cmdHookCollector records every command put on the command bus.
type cmdHookCollector struct {
	cmds []dram.CmdIssueInfo
}

func (c *cmdHookCollector) Func(ctx sim.HookCtx) {
	if ctx.Pos == dram.HookPosCmdIssue {
		c.cmds = append(c.cmds, ctx.Item.(dram.CmdIssueInfo))
	}
}

// transHookCollector records the transaction hook invocations.
type transHookCollector struct {
	starts    []dram.TransInfo
	completes []dram.TransInfo
}

func (c *transHookCollector) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case dram.HookPosTransStart:
		c.starts = append(c.starts, ctx.Item.(dram.TransInfo))
	case dram.HookPosTransComplete:
		c.completes = append(c.completes, ctx.Item.(dram.TransInfo))
	}
}

var _ = Describe("Controller", func() {
	var engine *sim.SerialEngine

	makeBuilder := func() dram.Builder {
		return dram.MakeBuilder().
			WithEngine(engine).
			WithGeometry(testGeometry()).
			WithTiming(testTiming()).
			WithPipelineLatency(1, 1)
	}

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
	})

	It("should return written data on a later read", func() {
		ctrl := makeBuilder().Build("Ctrl")

		data := make([]byte, 64)
		for i := range data {
			data[i] = byte(i * 3)
		}

		var readDone dram.Completion
		err := ctrl.Submit(0x80, 64, true, data,
			func(dram.Completion) {
				readErr := ctrl.Submit(0x80, 64, false, nil,
					func(c dram.Completion) {
						readDone = c
					})
				Expect(readErr).ToNot(HaveOccurred())
			})
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Run()).To(Succeed())

		Expect(readDone.Data).To(Equal(data))
		Expect(readDone.CompletionCycle - readDone.ArrivalCycle).
			To(BeNumerically(">=", 9))

		stats := ctrl.Stats()
		Expect(stats.ReadsCompleted).To(Equal(uint64(1)))
		Expect(stats.WritesCompleted).To(Equal(uint64(1)))
	})

	It("should reject zero-size requests", func() {
		ctrl := makeBuilder().Build("Ctrl")

		Expect(ctrl.Submit(0, 0, false, nil, nil)).To(HaveOccurred())
	})

	It("should count a row hit for back-to-back reads of one row", func() {
		ctrl := makeBuilder().
			WithPagePolicy(dram.PagePolicyOpen).
			Build("Ctrl")

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(ctrl.Submit(64, 64, false, nil, nil)).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		stats := ctrl.Stats()
		Expect(stats.RowMisses).To(Equal(uint64(1)))
		Expect(stats.RowHits).To(Equal(uint64(1)))
		Expect(stats.ReadsCompleted).To(Equal(uint64(2)))
	})

	It("should activate per access under the close page policy", func() {
		ctrl := makeBuilder().
			WithPagePolicy(dram.PagePolicyClose).
			Build("Ctrl")

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(ctrl.Submit(64, 64, false, nil, nil)).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		stats := ctrl.Stats()
		Expect(stats.Ranks[0].NumActivates).To(Equal(uint64(2)))
		Expect(stats.RowHits).To(Equal(uint64(0)))
	})

	It("should close a row after the configured access cap", func() {
		ctrl := makeBuilder().
			WithPagePolicy(dram.PagePolicyOpen).
			WithMaxAccessesPerRow(2).
			Build("Ctrl")

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(ctrl.Submit(64, 64, false, nil, nil)).To(Succeed())
		Expect(ctrl.Submit(128, 64, false, nil, nil)).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		Expect(ctrl.Stats().Ranks[0].NumActivates).To(Equal(uint64(2)))
	})

	It("should reject submissions that overflow the queue", func() {
		ctrl := makeBuilder().
			WithReadQueueSize(1).
			Build("Ctrl")

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())

		err := ctrl.Submit(64, 64, false, nil, nil)
		Expect(err).To(MatchError(dram.ErrQueueFull))

		Expect(engine.Run()).To(Succeed())
		Expect(ctrl.Stats().NumRejections).To(Equal(uint64(1)))
	})

	It("should reject addresses owned by another channel", func() {
		g := testGeometry()
		g.NumChannel = 2
		g.ChannelID = 0

		ctrl := makeBuilder().WithGeometry(g).Build("Ctrl")

		err := ctrl.Submit(512, 64, false, nil, nil)

		var addrErr *dram.InvalidAddressError
		Expect(errors.As(err, &addrErr)).To(BeTrue())
		Expect(addrErr.Decoded).To(Equal(uint64(1)))
		Expect(addrErr.Owned).To(Equal(uint64(0)))
	})

	It("should reject addresses beyond the device capacity", func() {
		ctrl := makeBuilder().Build("Ctrl")

		// The test geometry holds 0x40000 bytes.
		err := ctrl.Submit(0x40000, 64, false, nil, nil)

		var rangeErr *dram.OutOfRangeError
		Expect(errors.As(err, &rangeErr)).To(BeTrue())
		Expect(rangeErr.Capacity).To(Equal(uint64(0x40000)))

		// A request that starts in range but runs past the end is rejected
		// as a whole.
		err = ctrl.Submit(0x40000-64, 128, false, nil, nil)
		Expect(errors.As(err, &rangeErr)).To(BeTrue())

		// The last in-range burst still completes and the simulation
		// terminates.
		completed := false
		Expect(ctrl.Submit(0x40000-64, 64, false, nil,
			func(dram.Completion) { completed = true })).To(Succeed())

		Expect(engine.Run()).To(Succeed())
		Expect(completed).To(BeTrue())
	})

	It("should refresh the ranks while traffic is in flight", func() {
		t := testTiming()
		t.TREFI = 100

		ctrl := makeBuilder().WithTiming(t).Build("Ctrl")

		const numReads = 30
		completed := 0

		var next func(dram.Completion)
		next = func(dram.Completion) {
			completed++
			if completed < numReads {
				addr := uint64(completed) * 64
				Expect(ctrl.Submit(addr, 64, false, nil, next)).
					To(Succeed())
			}
		}
		Expect(ctrl.Submit(0, 64, false, nil, next)).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		Expect(completed).To(Equal(numReads))
		Expect(ctrl.Stats().Ranks[0].NumRefreshes).
			To(BeNumerically(">=", 1))
	})

	It("should power an idle rank down", func() {
		ctrl := makeBuilder().
			WithPowerDownAfter(20).
			WithCurrentDraw(dram.CurrentDraw{
				IDD0: 55, IDD2N: 32, IDD2P1: 12,
				IDD3N: 38, IDD3P1: 20,
				IDD4R: 157, IDD4W: 165,
				IDD5: 220, IDD6: 9,
				VDD: 1.5,
			}).
			Build("Ctrl")

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		stats := ctrl.Stats()
		Expect(stats.Ranks[0].NumPowerDowns).To(Equal(uint64(1)))
		Expect(stats.Ranks[1].NumPowerDowns).To(Equal(uint64(1)))
		Expect(stats.Ranks[0].TotalEnergy).To(BeNumerically(">", 0))
		Expect(stats.Ranks[0].AveragePower).To(BeNumerically(">", 0))
	})

	It("should put an idle rank into self refresh", func() {
		ctrl := makeBuilder().
			WithSelfRefreshAfter(30).
			Build("Ctrl")

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		stats := ctrl.Stats()
		Expect(stats.Ranks[0].NumSelfRefreshes).To(Equal(uint64(1)))
		Expect(stats.Ranks[1].NumSelfRefreshes).To(Equal(uint64(1)))
	})

	It("should hold traffic for tXS after a self-refresh exit", func() {
		ctrl := makeBuilder().
			WithSelfRefreshAfter(30).
			Build("Ctrl")

		collector := &cmdHookCollector{}
		ctrl.AcceptHook(collector)

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(ctrl.Stats().Ranks[0].NumSelfRefreshes).To(Equal(uint64(1)))

		// New traffic to the sleeping rank forces a self-refresh exit.
		completed := false
		Expect(ctrl.Submit(64, 64, false, nil,
			func(dram.Completion) { completed = true })).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(completed).To(BeTrue())

		var srxCycle, actCycle uint64
		for _, cmd := range collector.cmds {
			if cmd.Rank != 0 {
				continue
			}
			if cmd.Kind == "SRX" && srxCycle == 0 {
				srxCycle = cmd.Cycle
			}
			if cmd.Kind == "ACT" && srxCycle > 0 && actCycle == 0 {
				actCycle = cmd.Cycle
			}
		}

		Expect(srxCycle).NotTo(BeZero())
		Expect(actCycle).NotTo(BeZero())
		Expect(actCycle - srxCycle).
			To(BeNumerically(">=", testTiming().TXS))
	})

	It("should complete mixed traffic in arrival order under FCFS", func() {
		ctrl := makeBuilder().
			WithSchedulingPolicy(dram.SchedFCFS).
			Build("Ctrl")

		completed := 0
		count := func(dram.Completion) { completed++ }

		for i := 0; i < 8; i++ {
			data := make([]byte, 64)
			addr := uint64(i) * 64
			Expect(ctrl.Submit(addr, 64, true, data, count)).To(Succeed())
		}
		for i := 0; i < 8; i++ {
			addr := 2048 + uint64(i)*64
			Expect(ctrl.Submit(addr, 64, false, nil, count)).To(Succeed())
		}

		Expect(engine.Run()).To(Succeed())

		Expect(completed).To(Equal(16))

		stats := ctrl.Stats()
		Expect(stats.ReadsCompleted).To(Equal(uint64(8)))
		Expect(stats.WritesCompleted).To(Equal(uint64(8)))
	})

	It("should invoke the transaction hooks", func() {
		ctrl := makeBuilder().Build("Ctrl")

		collector := &transHookCollector{}
		ctrl.AcceptHook(collector)

		Expect(ctrl.Submit(0, 64, false, nil, nil)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(collector.starts).To(HaveLen(1))
		Expect(collector.completes).To(HaveLen(1))
		Expect(collector.starts[0].Address).To(Equal(uint64(0)))
		Expect(collector.completes[0].Cycle).
			To(BeNumerically(">", collector.starts[0].Cycle))
	})

	It("should split an unaligned request into multiple bursts", func() {
		ctrl := makeBuilder().Build("Ctrl")

		done := false
		Expect(ctrl.Submit(0x20, 64, false, nil,
			func(c dram.Completion) {
				done = true
				Expect(c.Data).To(HaveLen(64))
			})).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		Expect(done).To(BeTrue())
		Expect(ctrl.Stats().NumReadBursts).To(Equal(uint64(2)))
	})
})
