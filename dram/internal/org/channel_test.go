package org_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/dram/internal/addrmap"
	"github.com/sarchlab/dramctrl/dram/internal/org"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
)

const (
	testTRCD = 3
	testTRAS = 5
	testTRP  = 4
	testTRC  = testTRAS + testTRP
	testTRRD = 2
	testTXAW = 6
	testTRTP = 2
	testTRFC = 10
	testTXP  = 3
	testTXS  = 12

	testTREFI = 100
)

func testTiming() org.Timing {
	timing := org.Timing{
		SameBank:              org.MakeTimeTable(),
		OtherBanksInBankGroup: org.MakeTimeTable(),
		SameRank:              org.MakeTimeTable(),
		OtherRanks:            org.MakeTimeTable(),
	}

	sb := timing.SameBank
	sb[signal.CmdKindActivate] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindRead, MinCycleInBetween: testTRCD},
		{NextCmdKind: signal.CmdKindWrite, MinCycleInBetween: testTRCD},
		{NextCmdKind: signal.CmdKindPrecharge, MinCycleInBetween: testTRAS},
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: testTRC},
	}
	sb[signal.CmdKindPrecharge] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindActivate, MinCycleInBetween: testTRP},
		{NextCmdKind: signal.CmdKindRefresh, MinCycleInBetween: testTRP},
	}
	sb[signal.CmdKindRead] = []org.TimeTableEntry{
		{NextCmdKind: signal.CmdKindPrecharge, MinCycleInBetween: testTRTP},
	}

	for _, tbl := range []org.TimeTable{
		timing.SameBank, timing.OtherBanksInBankGroup, timing.SameRank,
	} {
		tbl[signal.CmdKindRefresh] = append(tbl[signal.CmdKindRefresh],
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindActivate,
				MinCycleInBetween: testTRFC,
			},
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindRefresh,
				MinCycleInBetween: testTRFC,
			})
		tbl[signal.CmdKindPowerDownExit] = append(
			tbl[signal.CmdKindPowerDownExit],
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindActivate,
				MinCycleInBetween: testTXP,
			},
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindRead,
				MinCycleInBetween: testTXP,
			})
		tbl[signal.CmdKindSRefExit] = append(
			tbl[signal.CmdKindSRefExit],
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindActivate,
				MinCycleInBetween: testTXS,
			},
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindRead,
				MinCycleInBetween: testTXS,
			})
	}

	for _, tbl := range []org.TimeTable{
		timing.OtherBanksInBankGroup, timing.SameRank,
	} {
		tbl[signal.CmdKindActivate] = append(tbl[signal.CmdKindActivate],
			org.TimeTableEntry{
				NextCmdKind:       signal.CmdKindActivate,
				MinCycleInBetween: testTRRD,
			})
	}

	return timing
}

func readCmd(bank, row uint64) *signal.Command {
	return &signal.Command{
		Kind:     signal.CmdKindRead,
		Location: addrmap.Location{Bank: bank, Row: row},
	}
}

var _ = Describe("ChannelImpl", func() {
	var channel *org.ChannelImpl

	BeforeEach(func() {
		channel = org.NewChannelImpl(
			testTiming(), 2, 1, 4, 2, testTXAW, testTREFI)
	})

	issue := func(now uint64, cmd *signal.Command) {
		channel.StartCommand(now, cmd)
		channel.UpdateTiming(now, cmd)
	}

	It("should require an activate on a closed bank", func() {
		ready := channel.GetReadyCommand(0, readCmd(0, 7))

		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
		Expect(ready.Location.Row).To(Equal(uint64(7)))
	})

	It("should wait tRCD between activate and read", func() {
		cmd := readCmd(0, 7)

		issue(0, channel.GetReadyCommand(0, cmd))

		Expect(channel.GetReadyCommand(testTRCD-1, cmd)).To(BeNil())

		ready := channel.GetReadyCommand(testTRCD, cmd)
		Expect(ready).To(BeIdenticalTo(cmd))
		Expect(channel.EarliestCycle(1, cmd)).To(Equal(uint64(testTRCD)))
	})

	It("should precharge on a row conflict", func() {
		issue(0, channel.GetReadyCommand(0, readCmd(0, 7)))
		issue(testTRCD, readCmd(0, 7))

		conflicting := readCmd(0, 9)

		Expect(channel.GetReadyCommand(testTRAS-1, conflicting)).To(BeNil())

		ready := channel.GetReadyCommand(testTRAS, conflicting)
		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindPrecharge))
	})

	It("should serve an open-row access without a prerequisite", func() {
		issue(0, channel.GetReadyCommand(0, readCmd(0, 7)))
		issue(testTRCD, readCmd(0, 7))

		again := readCmd(0, 7)
		ready := channel.GetReadyCommand(testTRCD, again)

		Expect(ready).To(BeIdenticalTo(again))
		Expect(channel.AccessesSinceActivate(again.Location)).To(Equal(1))
	})

	It("should cap activates within the tXAW window", func() {
		issue(0, channel.GetReadyCommand(0, readCmd(0, 1)))
		issue(testTRRD, channel.GetReadyCommand(testTRRD, readCmd(1, 1)))

		// Two activates in flight with a limit of two: the third must
		// wait for the window to slide past the first.
		third := readCmd(2, 1)
		Expect(channel.GetReadyCommand(testTXAW-1, third)).To(BeNil())

		ready := channel.GetReadyCommand(testTXAW, third)
		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
	})

	It("should constrain activates across banks but not ranks", func() {
		issue(0, channel.GetReadyCommand(0, readCmd(0, 1)))

		sameRank := channel.GetReadyCommand(testTRRD-1, readCmd(1, 1))
		Expect(sameRank).To(BeNil())

		otherRank := &signal.Command{
			Kind:     signal.CmdKindRead,
			Location: addrmap.Location{Rank: 1, Bank: 1, Row: 1},
		}
		Expect(channel.GetReadyCommand(testTRRD-1, otherRank)).
			NotTo(BeNil())
	})

	It("should hold refresh until every bank is closed", func() {
		issue(0, channel.GetReadyCommand(0, readCmd(0, 7)))

		ref := &signal.Command{
			Kind:     signal.CmdKindRefresh,
			Location: addrmap.Location{},
		}
		Expect(channel.GetReadyCommand(testTRAS, ref)).To(BeNil())

		pre := &signal.Command{
			Kind:     signal.CmdKindPrecharge,
			Location: addrmap.Location{Bank: 0, Row: 7},
		}
		issue(testTRAS, channel.GetReadyCommand(testTRAS, pre))

		Expect(channel.AllBanksClosed(0)).To(BeTrue())
		Expect(channel.GetReadyCommand(testTRAS+testTRP-1, ref)).
			To(BeNil())
		Expect(channel.GetReadyCommand(testTRAS+testTRP, ref)).
			NotTo(BeNil())
	})

	It("should not cap activates when the limit is disabled", func() {
		unlimited := org.NewChannelImpl(
			testTiming(), 2, 1, 4, 0, testTXAW, testTREFI)

		iss := func(now uint64, cmd *signal.Command) {
			unlimited.StartCommand(now, cmd)
			unlimited.UpdateTiming(now, cmd)
		}

		iss(0, unlimited.GetReadyCommand(0, readCmd(0, 1)))
		iss(testTRRD, unlimited.GetReadyCommand(testTRRD, readCmd(1, 1)))

		// With a limit of two, the third activate would stall until the
		// window slides past the first one.
		third := readCmd(2, 1)
		ready := unlimited.GetReadyCommand(2*testTRRD, third)
		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
	})

	It("should block the rank for tRFC after a refresh", func() {
		ref := &signal.Command{
			Kind:     signal.CmdKindRefresh,
			Location: addrmap.Location{},
		}
		issue(0, ref)

		cmd := readCmd(0, 1)
		Expect(channel.GetReadyCommand(testTRFC-1, cmd)).To(BeNil())

		ready := channel.GetReadyCommand(testTRFC, cmd)
		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
	})

	It("should push the refresh schedule after a refresh", func() {
		ref := &signal.Command{
			Kind:     signal.CmdKindRefresh,
			Location: addrmap.Location{},
		}

		issue(testTREFI, ref)

		rank := channel.Rank(0)
		Expect(rank.NextRefreshCycle()).
			To(Equal(uint64(testTREFI + testTREFI)))
		Expect(rank.RefreshDue(testTREFI + 1)).To(BeFalse())
	})

	It("should inject the exit for a powered-down rank", func() {
		pde := &signal.Command{
			Kind:     signal.CmdKindPowerDownEnter,
			Location: addrmap.Location{},
		}
		issue(0, pde)

		Expect(channel.Rank(0).State()).
			To(Equal(org.PowerStatePrechargePowerDown))

		ready := channel.GetReadyCommand(5, readCmd(0, 1))
		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindPowerDownExit))

		issue(5, ready)
		Expect(channel.Rank(0).State()).To(Equal(org.PowerStateActive))

		// tXP must pass before the rank accepts work again.
		Expect(channel.GetReadyCommand(5+testTXP-1, readCmd(0, 1))).
			To(BeNil())
		Expect(channel.GetReadyCommand(5+testTXP, readCmd(0, 1))).
			NotTo(BeNil())
	})

	It("should keep self-refresh ranks off the refresh schedule", func() {
		sre := &signal.Command{
			Kind:     signal.CmdKindSRefEnter,
			Location: addrmap.Location{},
		}
		issue(0, sre)

		rank := channel.Rank(0)
		Expect(rank.State()).To(Equal(org.PowerStateSelfRefresh))
		Expect(rank.RefreshDue(testTREFI * 3)).To(BeFalse())

		srx := channel.GetReadyCommand(testTREFI*3, readCmd(0, 1))
		Expect(srx.Kind).To(Equal(signal.CmdKindSRefExit))

		issue(testTREFI*3, srx)
		Expect(rank.State()).To(Equal(org.PowerStateActive))
		Expect(rank.NextRefreshCycle()).
			To(Equal(uint64(testTREFI*3 + testTREFI)))
	})

	It("should wait tXS after a self-refresh exit", func() {
		sre := &signal.Command{
			Kind:     signal.CmdKindSRefEnter,
			Location: addrmap.Location{},
		}
		issue(0, sre)

		srx := channel.GetReadyCommand(50, readCmd(0, 1))
		Expect(srx.Kind).To(Equal(signal.CmdKindSRefExit))
		issue(50, srx)

		Expect(channel.GetReadyCommand(50+testTXS-1, readCmd(0, 1))).
			To(BeNil())

		ready := channel.GetReadyCommand(50+testTXS, readCmd(0, 1))
		Expect(ready).NotTo(BeNil())
		Expect(ready.Kind).To(Equal(signal.CmdKindActivate))
	})

	It("should panic when a command runs ahead of its constraints", func() {
		issue(0, channel.GetReadyCommand(0, readCmd(0, 7)))

		Expect(func() {
			channel.StartCommand(1, readCmd(0, 7))
		}).To(Panic())
	})
})
