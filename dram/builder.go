package dram

import (
	"github.com/sarchlab/dramctrl/dram/internal/addrmap"
	"github.com/sarchlab/dramctrl/dram/internal/org"
	"github.com/sarchlab/dramctrl/dram/internal/sched"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
	"github.com/sarchlab/dramctrl/mem"
	"github.com/sarchlab/dramctrl/sim"
)

// PagePolicy decides when a row is closed after an access.
type PagePolicy int

// Supported page policies.
const (
	PagePolicyOpen PagePolicy = iota
	PagePolicyOpenAdaptive
	PagePolicyClose
	PagePolicyCloseAdaptive
)

func (p PagePolicy) String() string {
	switch p {
	case PagePolicyOpen:
		return "open"
	case PagePolicyOpenAdaptive:
		return "open_adaptive"
	case PagePolicyClose:
		return "close"
	case PagePolicyCloseAdaptive:
		return "close_adaptive"
	}

	return "unknown"
}

// SchedulingPolicy selects the order queued bursts are serviced in.
type SchedulingPolicy int

// Supported scheduling policies.
const (
	SchedFCFS SchedulingPolicy = iota
	SchedFRFCFS
)

func (s SchedulingPolicy) String() string {
	switch s {
	case SchedFCFS:
		return "fcfs"
	case SchedFRFCFS:
		return "frfcfs"
	}

	return "unknown"
}

// AddressMapping selects the bit-field order addresses decode with.
type AddressMapping int

// Supported address mappings, named most-significant field first.
const (
	AddrMapRoRaBaChCo AddressMapping = iota
	AddrMapRoRaBaCoCh
	AddrMapRoCoRaBaCh
)

func (m AddressMapping) String() string {
	return addrmap.AddrMap(m).String()
}

// DeviceGeometry describes the channel organization of one controller.
type DeviceGeometry struct {
	BusWidth    int // bits
	BurstLength int // beats

	NumChannel int
	ChannelID  int

	NumRank      int
	NumBankGroup int // 0 disables bank grouping
	BanksPerRank int

	NumRow int
	NumCol int // bus-wide columns per row
}

// DeviceTiming carries the timing parameters of one device grade. All
// values are in command-clock cycles except TCK, which is in nanoseconds.
type DeviceTiming struct {
	TCK float64

	TBURST int
	TCCDL  int
	TRCD   int
	TCL    int
	TRP    int
	TRAS   int
	TWR    int
	TWTR   int
	TRTW   int
	TRTP   int
	TCS    int

	TRRD            int
	TRRDL           int
	TXAW            int
	ActivationLimit int // activates per TXAW window, 0 disables

	TRFC  int
	TREFI int

	TXP    int
	TXPDLL int
	TXS    int
	TXSDLL int
	TCKESR int

	HasDLL bool
}

// A Builder configures and creates memory controllers. The zero value is
// not usable; start from MakeBuilder or one of the presets.
type Builder struct {
	engine sim.Engine

	geometry DeviceGeometry
	timing   DeviceTiming
	current  CurrentDraw

	pagePolicy  PagePolicy
	schedPolicy SchedulingPolicy
	addrMapping AddressMapping

	readQueueSize  int
	writeQueueSize int

	writeHighPerc      int
	writeLowPerc       int
	minWritesPerSwitch int

	maxAccessesPerRow   int
	starvationThreshold uint64

	frontendLatency int
	backendLatency  int

	powerDownAfter   int
	selfRefreshAfter int
}

// MakeBuilder returns a builder with the policy defaults shared by all the
// presets. A preset must still supply geometry, timing, and currents.
func MakeBuilder() Builder {
	return Builder{
		pagePolicy:  PagePolicyOpenAdaptive,
		schedPolicy: SchedFRFCFS,
		addrMapping: AddrMapRoRaBaChCo,

		readQueueSize:  32,
		writeQueueSize: 64,

		writeHighPerc:      85,
		writeLowPerc:       50,
		minWritesPerSwitch: 16,

		maxAccessesPerRow: 16,
	}
}

// WithEngine sets the event engine the controller runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithGeometry sets the channel organization.
func (b Builder) WithGeometry(g DeviceGeometry) Builder {
	b.geometry = g
	return b
}

// WithTiming sets the device timing parameters.
func (b Builder) WithTiming(t DeviceTiming) Builder {
	b.timing = t
	return b
}

// WithCurrentDraw sets the currents and voltages the power model uses.
func (b Builder) WithCurrentDraw(c CurrentDraw) Builder {
	b.current = c
	return b
}

// WithPagePolicy sets the page policy.
func (b Builder) WithPagePolicy(p PagePolicy) Builder {
	b.pagePolicy = p
	return b
}

// WithSchedulingPolicy sets the scheduling policy.
func (b Builder) WithSchedulingPolicy(s SchedulingPolicy) Builder {
	b.schedPolicy = s
	return b
}

// WithAddressMapping sets the address decode order.
func (b Builder) WithAddressMapping(m AddressMapping) Builder {
	b.addrMapping = m
	return b
}

// WithReadQueueSize sets the read queue capacity in bursts.
func (b Builder) WithReadQueueSize(n int) Builder {
	b.readQueueSize = n
	return b
}

// WithWriteQueueSize sets the write queue capacity in bursts.
func (b Builder) WithWriteQueueSize(n int) Builder {
	b.writeQueueSize = n
	return b
}

// WithWriteWatermarks sets the write drain thresholds. high and low are
// write queue occupancy percentages, minWrites is the minimum number of
// writes drained per switch.
func (b Builder) WithWriteWatermarks(high, low, minWrites int) Builder {
	b.writeHighPerc = high
	b.writeLowPerc = low
	b.minWritesPerSwitch = minWrites

	return b
}

// WithMaxAccessesPerRow caps the accesses served from one row activation.
// Zero disables the cap.
func (b Builder) WithMaxAccessesPerRow(n int) Builder {
	b.maxAccessesPerRow = n
	return b
}

// WithStarvationThreshold sets the age in cycles past which FR-FCFS serves
// a burst strictly oldest-first. Zero selects the default of 16 tRC.
func (b Builder) WithStarvationThreshold(cycles uint64) Builder {
	b.starvationThreshold = cycles
	return b
}

// WithPipelineLatency sets the static frontend and backend latencies in
// cycles.
func (b Builder) WithPipelineLatency(frontend, backend int) Builder {
	b.frontendLatency = frontend
	b.backendLatency = backend

	return b
}

// WithPowerDownAfter puts an idle rank into power-down after the given
// number of idle cycles. Zero disables power-down.
func (b Builder) WithPowerDownAfter(cycles int) Builder {
	b.powerDownAfter = cycles
	return b
}

// WithSelfRefreshAfter puts an idle rank into self refresh after the given
// number of idle cycles. Zero disables self refresh.
func (b Builder) WithSelfRefreshAfter(cycles int) Builder {
	b.selfRefreshAfter = cycles
	return b
}

// Build creates the controller.
func (b Builder) Build(name string) *Comp {
	b.mustBeValid()

	g := b.geometry
	t := b.timing

	numGroup := g.NumBankGroup
	if numGroup == 0 {
		numGroup = 1
	}

	mapper := addrmap.MakeBuilder().
		WithOrder(addrmap.AddrMap(b.addrMapping)).
		WithBusWidth(g.BusWidth).
		WithBurstLength(g.BurstLength).
		WithNumChannel(g.NumChannel).
		WithChannelID(g.ChannelID).
		WithNumRank(g.NumRank).
		WithNumBankGroup(g.NumBankGroup).
		WithNumBank(g.BanksPerRank).
		WithNumRow(g.NumRow).
		WithNumCol(g.NumCol).
		Build()

	channel := org.NewChannelImpl(
		b.generateTiming(),
		g.NumRank, numGroup, g.BanksPerRank/numGroup,
		t.ActivationLimit, t.TXAW, t.TREFI,
	)

	colBytes := uint64(g.BusWidth / 8)
	capacity := uint64(g.NumChannel) * uint64(g.NumRank) *
		uint64(g.BanksPerRank) * uint64(g.NumRow) *
		uint64(g.NumCol) * colBytes

	c := &Comp{
		storage: mem.NewStorage(capacity),
		mapper:  mapper,
		channel: channel,

		readQ:  sched.NewQueue(b.readQueueSize),
		writeQ: sched.NewQueue(b.writeQueueSize),
		drain: &sched.DrainState{
			HighWatermarkPerc:  b.writeHighPerc,
			LowWatermarkPerc:   b.writeLowPerc,
			MinWritesPerSwitch: b.minWritesPerSwitch,
		},

		pagePolicy:        b.pagePolicy,
		maxAccessesPerRow: b.maxAccessesPerRow,

		burstBytes:   colBytes * uint64(g.BurstLength),
		readLatency:  b.frontendLatency + b.backendLatency + t.TCL + t.TBURST,
		writeLatency: b.frontendLatency,

		powerDownAfter:   b.powerDownAfter,
		selfRefreshAfter: b.selfRefreshAfter,

		current: b.current,
		tCK:     t.TCK,
		timing: timingParams{
			tRAS:   t.TRAS,
			tRP:    t.TRP,
			tRFC:   t.TRFC,
			tBURST: t.TBURST,
		},

		callbacks: make(map[*signal.Transaction]CompletionCallback),
	}

	c.scheduler = b.makeScheduler(channel, t)

	freq := sim.Freq(1e9/t.TCK) * sim.Hz
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, freq, c)

	return c
}

func (b Builder) mustBeValid() {
	if b.engine == nil {
		panic("dram: builder needs an engine")
	}

	if b.timing.TCK <= 0 {
		panic("dram: builder needs device timing")
	}

	if b.geometry.NumRank == 0 || b.geometry.BanksPerRank == 0 {
		panic("dram: builder needs device geometry")
	}

	numGroup := b.geometry.NumBankGroup
	if numGroup > 0 && b.geometry.BanksPerRank%numGroup != 0 {
		panic("dram: banks per rank must divide evenly into bank groups")
	}
}

func (b Builder) makeScheduler(
	view sched.BankStateView,
	t DeviceTiming,
) sched.Scheduler {
	if b.schedPolicy == SchedFCFS {
		return sched.FCFSScheduler{}
	}

	threshold := b.starvationThreshold
	if threshold == 0 {
		threshold = 16 * uint64(t.TRAS+t.TRP)
	}

	return sched.FRFCFSScheduler{
		BankState:           view,
		StarvationThreshold: threshold,
	}
}

// generateTiming turns the device timing parameters into the per-scope
// constraint tables the channel enforces. Each entry reads "this many
// cycles must pass between the issue of the row command and the issue of
// the column command".
func (b Builder) generateTiming() org.Timing {
	t := b.timing

	tables := org.Timing{
		SameBank:              org.MakeTimeTable(),
		OtherBanksInBankGroup: org.MakeTimeTable(),
		SameRank:              org.MakeTimeTable(),
		OtherRanks:            org.MakeTimeTable(),
	}

	reads := []signal.CommandKind{
		signal.CmdKindRead, signal.CmdKindReadPrecharge,
	}
	writes := []signal.CommandKind{
		signal.CmdKindWrite, signal.CmdKindWritePrecharge,
	}
	accesses := append(append([]signal.CommandKind{}, reads...), writes...)

	tRC := t.TRAS + t.TRP
	writeToPre := t.TCL + t.TBURST + t.TWR
	readToWrite := t.TBURST + t.TRTW
	writeToRead := t.TCL + t.TBURST + t.TWTR

	ccd := t.TBURST
	if t.TCCDL > ccd {
		ccd = t.TCCDL
	}

	actToActL := t.TRRDL
	if actToActL == 0 {
		actToActL = t.TRRD
	}

	b.sameBankRows(tables.SameBank, tRC, writeToPre, reads, writes)

	// CAS to CAS inside one bank group pays the long CCD; across groups
	// only the data burst occupies the bus.
	for _, tbl := range []org.TimeTable{
		tables.SameBank, tables.OtherBanksInBankGroup,
	} {
		addEntries(tbl, ccd, reads, reads)
		addEntries(tbl, readToWrite, reads, writes)
		addEntries(tbl, ccd, writes, writes)
		addEntries(tbl, writeToRead, writes, reads)
	}
	addEntries(tables.SameRank, t.TBURST, reads, reads)
	addEntries(tables.SameRank, readToWrite, reads, writes)
	addEntries(tables.SameRank, t.TBURST, writes, writes)
	addEntries(tables.SameRank, writeToRead, writes, reads)

	addEntry(tables.OtherBanksInBankGroup,
		signal.CmdKindActivate, actToActL, signal.CmdKindActivate)
	addEntry(tables.SameRank,
		signal.CmdKindActivate, t.TRRD, signal.CmdKindActivate)

	// Rank to rank switches pay the bus turnaround on top of the burst.
	addEntries(tables.OtherRanks, t.TBURST+t.TCS, accesses, accesses)

	b.rankScopedRows(tables, accesses)

	return tables
}

func (b Builder) sameBankRows(
	tbl org.TimeTable,
	tRC, writeToPre int,
	reads, writes []signal.CommandKind,
) {
	t := b.timing

	addEntry(tbl, signal.CmdKindActivate, t.TRCD,
		signal.CmdKindRead, signal.CmdKindReadPrecharge,
		signal.CmdKindWrite, signal.CmdKindWritePrecharge)
	addEntry(tbl, signal.CmdKindActivate, t.TRAS,
		signal.CmdKindPrecharge)
	addEntry(tbl, signal.CmdKindActivate, tRC, signal.CmdKindActivate)

	addEntry(tbl, signal.CmdKindPrecharge, t.TRP,
		signal.CmdKindActivate, signal.CmdKindRefresh)

	addEntries(tbl, t.TRTP, reads,
		[]signal.CommandKind{signal.CmdKindPrecharge})
	addEntries(tbl, writeToPre, writes,
		[]signal.CommandKind{signal.CmdKindPrecharge})

	addEntry(tbl, signal.CmdKindReadPrecharge, t.TRTP+t.TRP,
		signal.CmdKindActivate, signal.CmdKindRefresh)
	addEntry(tbl, signal.CmdKindWritePrecharge, writeToPre+t.TRP,
		signal.CmdKindActivate, signal.CmdKindRefresh)
}

// rankScopedRows adds the constraints around refresh and the power states.
// These commands are decided per rank but tracked per bank, so their rows
// are replicated into every table that can apply within the rank.
func (b Builder) rankScopedRows(
	tables org.Timing,
	accesses []signal.CommandKind,
) {
	t := b.timing

	exitPD := t.TXP
	exitSR := t.TXS
	if t.HasDLL {
		if t.TXPDLL > 0 {
			exitPD = t.TXPDLL
		}
		if t.TXSDLL > 0 {
			exitSR = t.TXSDLL
		}
	}
	if exitPD < 1 {
		exitPD = 1
	}
	if exitSR < 1 {
		exitSR = 1
	}

	minSRef := t.TCKESR
	if minSRef < 1 {
		minSRef = 1
	}

	withinRank := []org.TimeTable{
		tables.SameBank, tables.OtherBanksInBankGroup, tables.SameRank,
	}

	for _, tbl := range withinRank {
		addEntry(tbl, signal.CmdKindRefresh, t.TRFC,
			signal.CmdKindActivate, signal.CmdKindPrecharge,
			signal.CmdKindRefresh,
			signal.CmdKindPowerDownEnter, signal.CmdKindSRefEnter)

		// A rank must be quiet before the clock can be gated.
		addEntries(tbl, t.TCL+t.TBURST+t.TWR, accesses,
			[]signal.CommandKind{
				signal.CmdKindPowerDownEnter, signal.CmdKindSRefEnter,
			})

		addEntry(tbl, signal.CmdKindPowerDownEnter, 1,
			signal.CmdKindPowerDownExit)
		addEntry(tbl, signal.CmdKindPowerDownExit, exitPD,
			signal.CmdKindActivate,
			signal.CmdKindRead, signal.CmdKindReadPrecharge,
			signal.CmdKindWrite, signal.CmdKindWritePrecharge,
			signal.CmdKindPrecharge, signal.CmdKindRefresh,
			signal.CmdKindPowerDownEnter, signal.CmdKindSRefEnter)

		addEntry(tbl, signal.CmdKindSRefEnter, minSRef,
			signal.CmdKindSRefExit)
		addEntry(tbl, signal.CmdKindSRefExit, exitSR,
			signal.CmdKindActivate,
			signal.CmdKindRead, signal.CmdKindReadPrecharge,
			signal.CmdKindWrite, signal.CmdKindWritePrecharge,
			signal.CmdKindPrecharge, signal.CmdKindRefresh,
			signal.CmdKindPowerDownEnter, signal.CmdKindSRefEnter)
	}
}

func addEntry(
	tbl org.TimeTable,
	prev signal.CommandKind,
	gap int,
	nexts ...signal.CommandKind,
) {
	if gap <= 0 {
		return
	}

	for _, next := range nexts {
		tbl[prev] = append(tbl[prev], org.TimeTableEntry{
			NextCmdKind:       next,
			MinCycleInBetween: gap,
		})
	}
}

func addEntries(
	tbl org.TimeTable,
	gap int,
	prevs, nexts []signal.CommandKind,
) {
	for _, prev := range prevs {
		addEntry(tbl, prev, gap, nexts...)
	}
}
