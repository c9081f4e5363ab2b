// Package dram models a single-channel DRAM memory controller at command
// granularity. The controller queues read and write requests, splits them
// into bursts, and schedules ACT/RD/WR/PRE/REF commands under the timing
// constraints of the configured device.
package dram

import (
	"errors"

	"github.com/sarchlab/dramctrl/dram/internal/addrmap"
	"github.com/sarchlab/dramctrl/dram/internal/org"
	"github.com/sarchlab/dramctrl/dram/internal/sched"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
	"github.com/sarchlab/dramctrl/mem"
	"github.com/sarchlab/dramctrl/sim"
)

// ErrQueueFull is returned by Submit when the target queue cannot hold all
// the bursts of the request. The caller may retry on a later cycle.
var ErrQueueFull = errors.New("dram: transaction queue full")

// InvalidAddressError is returned by Submit when the address does not decode
// to a location owned by this controller.
type InvalidAddressError = addrmap.InvalidAddressError

// OutOfRangeError is returned by Submit when the request touches an address
// past the end of the device.
type OutOfRangeError = addrmap.OutOfRangeError

// HookPosCmdIssue is triggered every time the controller puts a command on
// the command bus. The hook item is a CmdIssueInfo.
var HookPosCmdIssue = &sim.HookPos{Name: "DRAM Cmd Issue"}

// HookPosTransStart is triggered when Submit accepts a transaction. The
// hook item is a TransInfo.
var HookPosTransStart = &sim.HookPos{Name: "DRAM Trans Start"}

// HookPosTransComplete is triggered when the last burst of a transaction
// finishes. The hook item is a TransInfo.
var HookPosTransComplete = &sim.HookPos{Name: "DRAM Trans Complete"}

// TransInfo describes a transaction for tracing hooks.
type TransInfo struct {
	Cycle   uint64
	Address uint64
	Size    uint64
	IsWrite bool
}

// CmdIssueInfo describes one issued command for tracing hooks.
type CmdIssueInfo struct {
	Cycle     uint64
	Kind      string
	Rank      uint64
	BankGroup uint64
	Bank      uint64
	Row       uint64
	Column    uint64
}

// Completion reports the outcome of a submitted request.
type Completion struct {
	Address uint64
	Size    uint64
	IsWrite bool

	// Data carries the bytes read from storage. It is nil for writes.
	Data []byte

	ArrivalCycle    uint64
	CompletionCycle uint64
}

// A CompletionCallback is invoked once when all the bursts of a request have
// finished.
type CompletionCallback func(Completion)

// Comp is the memory controller component. Create one with a Builder.
type Comp struct {
	*sim.TickingComponent

	storage *mem.Storage
	mapper  addrmap.Mapper
	channel org.Channel

	readQ, writeQ *sched.Queue
	scheduler     sched.Scheduler
	drain         *sched.DrainState

	pagePolicy        PagePolicy
	maxAccessesPerRow int

	burstBytes   uint64
	readLatency  int
	writeLatency int

	powerDownAfter   int
	selfRefreshAfter int

	current CurrentDraw
	tCK     float64
	timing  timingParams

	callbacks map[*signal.Transaction]CompletionCallback

	lastTickCycle uint64
	ticked        bool

	numReadTransactions  uint64
	numWriteTransactions uint64
	numReadBursts        uint64
	numWriteBursts       uint64
	numRejections        uint64
	rowHits              uint64
	rowMisses            uint64
	readsCompleted       uint64
	writesCompleted      uint64
	totalReadLatency     uint64
	totalWriteLatency    uint64
}

// timingParams keeps the few raw timing values the power model and the
// starvation threshold need after the tables are generated.
type timingParams struct {
	tRAS, tRP, tRFC, tBURST int
}

type burstCompletionEvent struct {
	*sim.EventBase

	burst *signal.SubTransaction
}

// Submit enqueues one request. The request is split into bursts at burst
// boundaries; either all bursts are accepted or the whole request is
// rejected with ErrQueueFull. The callback fires once, when the last burst
// completes.
func (c *Comp) Submit(
	addr, size uint64,
	isWrite bool,
	data []byte,
	cb CompletionCallback,
) error {
	if size == 0 {
		return errors.New("dram: zero-size request")
	}

	now := c.Freq.Cycle(c.Now())
	trans := &signal.Transaction{
		ID:           sim.GenerateID(),
		Address:      addr,
		Size:         size,
		IsWrite:      isWrite,
		ArrivalCycle: now,
	}
	if isWrite {
		trans.Data = data
	}

	first := addr &^ (c.burstBytes - 1)
	for burstAddr := first; burstAddr < addr+size; burstAddr += c.burstBytes {
		loc, err := c.mapper.Map(burstAddr)
		if err != nil {
			return err
		}

		trans.SubTransactions = append(trans.SubTransactions,
			&signal.SubTransaction{
				ID:          sim.GenerateID(),
				Transaction: trans,
				Location:    loc,
				Address:     burstAddr,
			})
	}

	queue := c.readQ
	if isWrite {
		queue = c.writeQ
	}

	if !queue.CanPush(len(trans.SubTransactions)) {
		c.numRejections++
		return ErrQueueFull
	}

	queue.Push(trans.SubTransactions...)
	c.callbacks[trans] = cb

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosTransStart,
			Item: TransInfo{
				Cycle:   now,
				Address: addr,
				Size:    size,
				IsWrite: isWrite,
			},
		})
	}

	if isWrite {
		c.numWriteTransactions++
		c.numWriteBursts += uint64(len(trans.SubTransactions))
	} else {
		c.numReadTransactions++
		c.numReadBursts += uint64(len(trans.SubTransactions))
	}

	c.TickLater()

	return nil
}

// Handle processes burst completion events.
func (c *Comp) Handle(evt sim.Event) error {
	switch e := evt.(type) {
	case *burstCompletionEvent:
		return c.completeBurst(e.burst)
	default:
		return c.TickingComponent.Handle(evt)
	}
}

// Tick issues at most one command per cycle. Refresh obligations preempt
// demand traffic, then the active queue is walked in scheduler order, then
// idle ranks may be powered down. When nothing is issuable the controller
// sleeps until the next cycle anything can change.
func (c *Comp) Tick() bool {
	now := c.Freq.Cycle(c.Now())

	// A stale wake-up event can land on a cycle the regular tick chain
	// already covers. The command bus carries one command per cycle.
	if c.ticked && now == c.lastTickCycle {
		return false
	}
	c.lastTickCycle = now
	c.ticked = true

	if c.issueRefresh(now) {
		return true
	}

	c.drain.Update(c.readQ, c.writeQ)

	if c.issueAccess(now) {
		return true
	}

	if c.issuePowerSave(now) {
		return true
	}

	c.scheduleWake(now)

	return false
}

func (c *Comp) issueRefresh(now uint64) bool {
	for r := 0; r < c.channel.NumRanks(); r++ {
		rankID := uint64(r)
		rank := c.channel.Rank(rankID)

		if !rank.RefreshDue(now) {
			continue
		}

		if rank.State() == org.PowerStateActive &&
			!c.channel.AllBanksClosed(rankID) {
			if c.closeOneBank(now, rankID) {
				return true
			}

			continue
		}

		ref := &signal.Command{
			ID:       sim.GenerateID(),
			Kind:     signal.CmdKindRefresh,
			Location: addrmap.Location{Rank: rankID},
		}
		if ready := c.channel.GetReadyCommand(now, ref); ready != nil {
			c.issueCommand(now, ready)
			return true
		}
	}

	return false
}

// closeOneBank issues a precharge to the first open bank that accepts one.
func (c *Comp) closeOneBank(now, rankID uint64) bool {
	for _, loc := range c.channel.OpenBankLocations(rankID) {
		pre := &signal.Command{
			ID:       sim.GenerateID(),
			Kind:     signal.CmdKindPrecharge,
			Location: loc,
		}
		if ready := c.channel.GetReadyCommand(now, pre); ready != nil {
			c.issueCommand(now, ready)
			return true
		}
	}

	return false
}

func (c *Comp) issueAccess(now uint64) bool {
	queue := c.activeQueue()

	for _, burst := range c.scheduler.Candidates(now, queue) {
		if c.channel.Rank(burst.Location.Rank).RefreshDue(now) {
			continue
		}

		want := c.accessCommandFor(burst)

		ready := c.channel.GetReadyCommand(now, want)
		if ready == nil {
			continue
		}

		if ready == want {
			if c.channel.AccessesSinceActivate(burst.Location) > 0 {
				c.rowHits++
			} else {
				c.rowMisses++
			}
		}

		c.issueCommand(now, ready)

		if ready == want {
			c.finishBurstIssue(queue, burst)
		}

		return true
	}

	return false
}

// accessCommandFor builds the column command for a burst, deciding between
// the plain and the auto-precharge variant per the page policy.
func (c *Comp) accessCommandFor(burst *signal.SubTransaction) *signal.Command {
	kind := signal.CmdKindRead
	if burst.IsWrite() {
		kind = signal.CmdKindWrite
	}

	if c.shouldAutoPrecharge(burst) {
		if burst.IsWrite() {
			kind = signal.CmdKindWritePrecharge
		} else {
			kind = signal.CmdKindReadPrecharge
		}
	}

	return &signal.Command{
		ID:       sim.GenerateID(),
		Kind:     kind,
		Location: burst.Location,
		SubTrans: burst,
	}
}

func (c *Comp) shouldAutoPrecharge(burst *signal.SubTransaction) bool {
	loc := burst.Location
	row := loc.Row

	if c.maxAccessesPerRow > 0 &&
		c.channel.AccessesSinceActivate(loc)+1 >= c.maxAccessesPerRow {
		return true
	}

	switch c.pagePolicy {
	case PagePolicyClose:
		return true
	case PagePolicyCloseAdaptive:
		return !c.moreForRow(burst, loc, row)
	case PagePolicyOpenAdaptive:
		return !c.moreForRow(burst, loc, row) &&
			c.conflictForBank(burst, loc, row)
	default:
		return false
	}
}

func (c *Comp) moreForRow(
	burst *signal.SubTransaction,
	loc addrmap.Location,
	row uint64,
) bool {
	return c.readQ.HasForRow(burst, loc, row) ||
		c.writeQ.HasForRow(burst, loc, row)
}

func (c *Comp) conflictForBank(
	burst *signal.SubTransaction,
	loc addrmap.Location,
	row uint64,
) bool {
	return c.readQ.HasForBankOtherRow(burst, loc, row) ||
		c.writeQ.HasForBankOtherRow(burst, loc, row)
}

func (c *Comp) finishBurstIssue(
	queue *sched.Queue,
	burst *signal.SubTransaction,
) {
	burst.Issued = true
	queue.Remove(burst)

	latency := c.readLatency
	if burst.IsWrite() {
		latency = c.writeLatency
		c.drain.WroteOneBurst()
	}

	evt := &burstCompletionEvent{
		EventBase: sim.NewEventBase(
			c.Freq.NCyclesLater(latency, c.Now()), c),
		burst: burst,
	}
	c.Engine.Schedule(evt)
}

// issuePowerSave moves ranks with no pending work toward power-down or self
// refresh after the configured idle thresholds.
func (c *Comp) issuePowerSave(now uint64) bool {
	if c.powerDownAfter == 0 && c.selfRefreshAfter == 0 {
		return false
	}

	for r := 0; r < c.channel.NumRanks(); r++ {
		rankID := uint64(r)
		rank := c.channel.Rank(rankID)

		if c.readQ.HasForRank(rankID) || c.writeQ.HasForRank(rankID) {
			continue
		}

		if rank.RefreshDue(now) {
			continue
		}

		idle := now - rank.LastBusyCycle()

		if c.selfRefreshAfter > 0 &&
			idle >= uint64(c.selfRefreshAfter) &&
			rank.State() != org.PowerStateSelfRefresh {
			if c.enterSelfRefresh(now, rankID) {
				return true
			}

			continue
		}

		if c.powerDownAfter > 0 &&
			idle >= uint64(c.powerDownAfter) &&
			rank.State() == org.PowerStateActive {
			pde := &signal.Command{
				ID:       sim.GenerateID(),
				Kind:     signal.CmdKindPowerDownEnter,
				Location: addrmap.Location{Rank: rankID},
			}
			if ready := c.channel.GetReadyCommand(now, pde); ready != nil {
				c.issueCommand(now, ready)
				return true
			}
		}
	}

	return false
}

func (c *Comp) enterSelfRefresh(now, rankID uint64) bool {
	if c.channel.Rank(rankID).State() == org.PowerStateActive &&
		!c.channel.AllBanksClosed(rankID) {
		return c.closeOneBank(now, rankID)
	}

	sre := &signal.Command{
		ID:       sim.GenerateID(),
		Kind:     signal.CmdKindSRefEnter,
		Location: addrmap.Location{Rank: rankID},
	}
	if ready := c.channel.GetReadyCommand(now, sre); ready != nil {
		c.issueCommand(now, ready)
		return true
	}

	return false
}

func (c *Comp) issueCommand(now uint64, cmd *signal.Command) {
	c.channel.StartCommand(now, cmd)
	c.channel.UpdateTiming(now, cmd)

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosCmdIssue,
			Item: CmdIssueInfo{
				Cycle:     now,
				Kind:      cmd.Kind.String(),
				Rank:      cmd.Location.Rank,
				BankGroup: cmd.Location.BankGroup,
				Bank:      cmd.Location.Bank,
				Row:       cmd.Location.Row,
				Column:    cmd.Location.Column,
			},
		})
	}
}

func (c *Comp) activeQueue() *sched.Queue {
	if c.drain.Direction() == sched.DirWrite {
		return c.writeQ
	}

	return c.readQ
}

// scheduleWake finds the next cycle at which any blocked command can become
// legal and sleeps until then. With nothing pending the controller stays
// asleep until the next Submit.
func (c *Comp) scheduleWake(now uint64) {
	const never = ^uint64(0)
	next := never

	consider := func(cycle uint64) {
		if cycle > now && cycle < next {
			next = cycle
		}
	}

	// With no transaction in flight the refresh obligation does not keep
	// the simulation alive; an overdue rank refreshes before the next
	// demand access instead.
	pending := len(c.callbacks) > 0

	for r := 0; r < c.channel.NumRanks(); r++ {
		rankID := uint64(r)
		rank := c.channel.Rank(rankID)

		if pending && rank.State() != org.PowerStateSelfRefresh {
			consider(rank.NextRefreshCycle())
		}

		if pending && rank.RefreshDue(now) {
			c.considerRefreshWake(now, rankID, consider)
		}

		c.considerPowerSaveWake(now, rankID, consider)
	}

	queue := c.activeQueue()
	for _, burst := range c.scheduler.Candidates(now, queue) {
		want := c.accessCommandFor(burst)
		consider(c.channel.EarliestCycle(now, want))
	}

	if next == never {
		return
	}

	c.TickAfter(int(next - now))
}

func (c *Comp) considerRefreshWake(
	now, rankID uint64,
	consider func(uint64),
) {
	rank := c.channel.Rank(rankID)

	if rank.State() == org.PowerStateActive &&
		!c.channel.AllBanksClosed(rankID) {
		for _, loc := range c.channel.OpenBankLocations(rankID) {
			pre := &signal.Command{
				Kind:     signal.CmdKindPrecharge,
				Location: loc,
			}
			consider(c.channel.EarliestCycle(now, pre))
		}

		return
	}

	ref := &signal.Command{
		Kind:     signal.CmdKindRefresh,
		Location: addrmap.Location{Rank: rankID},
	}
	consider(c.channel.EarliestCycle(now, ref))
}

func (c *Comp) considerPowerSaveWake(
	now, rankID uint64,
	consider func(uint64),
) {
	rank := c.channel.Rank(rankID)

	if c.readQ.HasForRank(rankID) || c.writeQ.HasForRank(rankID) {
		return
	}

	if c.powerDownAfter > 0 && rank.State() == org.PowerStateActive {
		consider(rank.LastBusyCycle() + uint64(c.powerDownAfter))
	}

	if c.selfRefreshAfter > 0 &&
		rank.State() != org.PowerStateSelfRefresh {
		consider(rank.LastBusyCycle() + uint64(c.selfRefreshAfter))
	}
}

func (c *Comp) completeBurst(burst *signal.SubTransaction) error {
	burst.Completed = true

	trans := burst.Transaction
	if !trans.IsCompleted() {
		return nil
	}

	now := c.Freq.Cycle(c.Now())
	trans.CompletionCycle = now
	latency := now - trans.ArrivalCycle

	completion := Completion{
		Address:         trans.Address,
		Size:            trans.Size,
		IsWrite:         trans.IsWrite,
		ArrivalCycle:    trans.ArrivalCycle,
		CompletionCycle: now,
	}

	// Drop the callback entry before touching storage so a storage failure
	// cannot leave the transaction counted as pending forever.
	cb := c.callbacks[trans]
	delete(c.callbacks, trans)

	if trans.IsWrite {
		if err := c.storage.Write(trans.Address, trans.Data); err != nil {
			return err
		}

		c.writesCompleted++
		c.totalWriteLatency += latency
	} else {
		data, err := c.storage.Read(trans.Address, trans.Size)
		if err != nil {
			return err
		}

		completion.Data = data
		c.readsCompleted++
		c.totalReadLatency += latency
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosTransComplete,
			Item: TransInfo{
				Cycle:   now,
				Address: trans.Address,
				Size:    trans.Size,
				IsWrite: trans.IsWrite,
			},
		})
	}

	if cb != nil {
		cb(completion)
	}

	return nil
}
