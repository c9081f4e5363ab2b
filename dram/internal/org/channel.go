package org

import (
	"fmt"

	"github.com/sarchlab/dramctrl/dram/internal/addrmap"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
)

// A Channel coordinates the banks and ranks that share one command bus. It
// is the constraint oracle the scheduler queries: GetReadyCommand answers
// "what can be issued now toward this command", StartCommand and
// UpdateTiming record an issue.
type Channel interface {
	// GetReadyCommand returns the command that can be issued now to move
	// the given command forward. The return value is the command itself,
	// a prerequisite (activate, precharge, or power-state exit), or nil
	// if the timing constraints block everything this cycle.
	GetReadyCommand(now uint64, cmd *signal.Command) *signal.Command

	// StartCommand updates the bank and rank state for an issued command.
	StartCommand(now uint64, cmd *signal.Command)

	// UpdateTiming advances the earliest legal cycles of all the commands
	// constrained by an issued command.
	UpdateTiming(now uint64, cmd *signal.Command)

	// EarliestCycle returns the first cycle at which GetReadyCommand for
	// the given command can return non-nil, assuming no further commands
	// are issued in between.
	EarliestCycle(now uint64, cmd *signal.Command) uint64

	OpenRow(loc addrmap.Location) (uint64, bool)
	AccessesSinceActivate(loc addrmap.Location) int
	OpenBankLocations(rank uint64) []addrmap.Location
	AllBanksClosed(rank uint64) bool
	Rank(rank uint64) *Rank
	NumRanks() int
}

// ChannelImpl implements Channel with flat bank and rank arrays.
type ChannelImpl struct {
	Timing Timing
	Banks  Banks
	Ranks  []*Rank

	ActivationLimit int
	TXAW            int
	TREFI           int
}

// NewChannelImpl creates a channel with all banks precharged and all ranks
// active.
func NewChannelImpl(
	timing Timing,
	numRank, numBankGroup, numBank int,
	activationLimit, tXAW, tREFI int,
) *ChannelImpl {
	c := &ChannelImpl{
		Timing:          timing,
		Banks:           MakeBanks(numRank, numBankGroup, numBank),
		ActivationLimit: activationLimit,
		TXAW:            tXAW,
		TREFI:           tREFI,
	}

	for i := 0; i < numRank; i++ {
		c.Ranks = append(c.Ranks, NewRank(tREFI))
	}

	return c
}

func (c *ChannelImpl) bank(loc addrmap.Location) *Bank {
	return c.Banks.GetBank(loc.Rank, loc.BankGroup, loc.Bank)
}

// OpenRow returns the open row of the bank at the given location.
func (c *ChannelImpl) OpenRow(loc addrmap.Location) (uint64, bool) {
	return c.bank(loc).OpenRow()
}

// AccessesSinceActivate returns the access count of the open row at the
// given location.
func (c *ChannelImpl) AccessesSinceActivate(loc addrmap.Location) int {
	return c.bank(loc).AccessesSinceActivate()
}

// OpenBankLocations returns the locations of all the open banks in a rank.
func (c *ChannelImpl) OpenBankLocations(rank uint64) []addrmap.Location {
	var locs []addrmap.Location

	for g, group := range c.Banks[rank] {
		for b, bank := range group {
			if row, open := bank.OpenRow(); open {
				locs = append(locs, addrmap.Location{
					Rank:      rank,
					BankGroup: uint64(g),
					Bank:      uint64(b),
					Row:       row,
				})
			}
		}
	}

	return locs
}

// AllBanksClosed returns true if every bank in the rank is precharged.
func (c *ChannelImpl) AllBanksClosed(rank uint64) bool {
	for _, group := range c.Banks[rank] {
		for _, bank := range group {
			if _, open := bank.OpenRow(); open {
				return false
			}
		}
	}

	return true
}

// Rank returns the rank state at the given index.
func (c *ChannelImpl) Rank(rank uint64) *Rank {
	return c.Ranks[rank]
}

// NumRanks returns the number of ranks in the channel.
func (c *ChannelImpl) NumRanks() int {
	return len(c.Ranks)
}

// GetReadyCommand implements the Channel interface.
func (c *ChannelImpl) GetReadyCommand(
	now uint64,
	cmd *signal.Command,
) *signal.Command {
	rank := c.Ranks[cmd.Location.Rank]

	if exit := c.powerExitCommand(rank, cmd); exit != nil {
		if c.rankScopedLegal(now, exit) {
			return exit
		}

		return nil
	}

	if cmd.Kind.RankScoped() {
		if c.rankScopedLegal(now, cmd) {
			return cmd
		}

		return nil
	}

	return c.bankCommandReady(now, cmd)
}

// powerExitCommand returns the exit command a sleeping rank needs before the
// given command, or nil if the rank is awake or the command is the exit
// itself.
func (c *ChannelImpl) powerExitCommand(
	rank *Rank,
	cmd *signal.Command,
) *signal.Command {
	switch rank.State() {
	case PowerStateSelfRefresh:
		if cmd.Kind == signal.CmdKindSRefExit {
			return nil
		}

		return &signal.Command{
			Kind:     signal.CmdKindSRefExit,
			Location: addrmap.Location{Rank: cmd.Location.Rank},
		}
	case PowerStateActivePowerDown, PowerStatePrechargePowerDown:
		if cmd.Kind == signal.CmdKindPowerDownExit {
			return nil
		}

		return &signal.Command{
			Kind:     signal.CmdKindPowerDownExit,
			Location: addrmap.Location{Rank: cmd.Location.Rank},
		}
	}

	return nil
}

func (c *ChannelImpl) rankScopedLegal(now uint64, cmd *signal.Command) bool {
	needClosed := cmd.Kind == signal.CmdKindRefresh ||
		cmd.Kind == signal.CmdKindSRefEnter

	if needClosed && !c.AllBanksClosed(cmd.Location.Rank) {
		return false
	}

	for _, group := range c.Banks[cmd.Location.Rank] {
		for _, bank := range group {
			if now < bank.EarliestCycle(cmd.Kind) {
				return false
			}
		}
	}

	return true
}

func (c *ChannelImpl) bankCommandReady(
	now uint64,
	cmd *signal.Command,
) *signal.Command {
	bank := c.bank(cmd.Location)
	openRow, open := bank.OpenRow()

	if !open {
		return c.activateIfLegal(now, cmd)
	}

	if openRow != cmd.Location.Row {
		if now < bank.EarliestCycle(signal.CmdKindPrecharge) {
			return nil
		}

		return &signal.Command{
			Kind:     signal.CmdKindPrecharge,
			Location: cmd.Location,
		}
	}

	if now < bank.EarliestCycle(cmd.Kind) {
		return nil
	}

	return cmd
}

func (c *ChannelImpl) activateIfLegal(
	now uint64,
	cmd *signal.Command,
) *signal.Command {
	bank := c.bank(cmd.Location)
	rank := c.Ranks[cmd.Location.Rank]

	if now < bank.EarliestCycle(signal.CmdKindActivate) {
		return nil
	}

	if now < rank.EarliestActivateCycle(c.ActivationLimit, c.TXAW) {
		return nil
	}

	return &signal.Command{
		Kind:     signal.CmdKindActivate,
		Location: cmd.Location,
	}
}

// EarliestCycle implements the Channel interface.
func (c *ChannelImpl) EarliestCycle(
	now uint64,
	cmd *signal.Command,
) uint64 {
	rank := c.Ranks[cmd.Location.Rank]

	if exit := c.powerExitCommand(rank, cmd); exit != nil {
		return c.rankScopedEarliest(exit)
	}

	if cmd.Kind.RankScoped() {
		return c.rankScopedEarliest(cmd)
	}

	bank := c.bank(cmd.Location)
	openRow, open := bank.OpenRow()

	if !open {
		earliest := bank.EarliestCycle(signal.CmdKindActivate)
		actWindow := rank.EarliestActivateCycle(c.ActivationLimit, c.TXAW)
		if actWindow > earliest {
			earliest = actWindow
		}

		return earliest
	}

	if openRow != cmd.Location.Row {
		return bank.EarliestCycle(signal.CmdKindPrecharge)
	}

	return bank.EarliestCycle(cmd.Kind)
}

func (c *ChannelImpl) rankScopedEarliest(cmd *signal.Command) uint64 {
	earliest := uint64(0)

	for _, group := range c.Banks[cmd.Location.Rank] {
		for _, bank := range group {
			if e := bank.EarliestCycle(cmd.Kind); e > earliest {
				earliest = e
			}
		}
	}

	return earliest
}

// StartCommand implements the Channel interface.
func (c *ChannelImpl) StartCommand(now uint64, cmd *signal.Command) {
	c.mustBeLegal(now, cmd)

	rank := c.Ranks[cmd.Location.Rank]
	rank.CmdCounts[cmd.Kind]++

	switch cmd.Kind {
	case signal.CmdKindActivate:
		c.bank(cmd.Location).activate(now, cmd.Location.Row)
		rank.recordActivate(now, c.ActivationLimit)
	case signal.CmdKindPrecharge:
		c.bank(cmd.Location).precharge(now)
	case signal.CmdKindRead, signal.CmdKindWrite:
		c.bank(cmd.Location).access()
	case signal.CmdKindReadPrecharge, signal.CmdKindWritePrecharge:
		bank := c.bank(cmd.Location)
		bank.access()
		bank.precharge(now)
	case signal.CmdKindRefresh:
		rank.refreshStarted(now, c.TREFI)
	case signal.CmdKindPowerDownEnter:
		if c.AllBanksClosed(cmd.Location.Rank) {
			rank.SetState(now, PowerStatePrechargePowerDown)
		} else {
			rank.SetState(now, PowerStateActivePowerDown)
		}
	case signal.CmdKindSRefEnter:
		rank.SetState(now, PowerStateSelfRefresh)
	case signal.CmdKindPowerDownExit:
		rank.SetState(now, PowerStateActive)
	case signal.CmdKindSRefExit:
		rank.SetState(now, PowerStateActive)
		// The device refreshed itself while asleep; restart the
		// countdown from the exit.
		rank.DeferRefresh(now, c.TREFI)
	}

	// Power-state transitions are not demand work and must not reset the
	// idle clock, or a powered-down rank could never reach self refresh.
	switch cmd.Kind {
	case signal.CmdKindPowerDownEnter, signal.CmdKindPowerDownExit,
		signal.CmdKindSRefEnter, signal.CmdKindSRefExit:
	default:
		rank.lastBusyCycle = now
	}
}

// mustBeLegal asserts that the command does not run ahead of any constraint
// clock. Reaching the panic means the scheduler bypassed GetReadyCommand.
func (c *ChannelImpl) mustBeLegal(now uint64, cmd *signal.Command) {
	if cmd.Kind.RankScoped() {
		if e := c.rankScopedEarliest(cmd); now < e {
			panic(fmt.Sprintf(
				"constraint violation: %s to rank %d at cycle %d, legal at %d",
				cmd.Kind, cmd.Location.Rank, now, e))
		}

		return
	}

	bank := c.bank(cmd.Location)
	if e := bank.EarliestCycle(cmd.Kind); now < e {
		panic(fmt.Sprintf(
			"constraint violation: %s to rank %d bank %d at cycle %d, legal at %d",
			cmd.Kind, cmd.Location.Rank, cmd.Location.Bank, now, e))
	}

	if cmd.Kind == signal.CmdKindActivate {
		rank := c.Ranks[cmd.Location.Rank]
		if e := rank.EarliestActivateCycle(c.ActivationLimit, c.TXAW); now < e {
			panic(fmt.Sprintf(
				"constraint violation: activation window full on rank %d "+
					"at cycle %d, legal at %d",
				cmd.Location.Rank, now, e))
		}
	}
}

// UpdateTiming implements the Channel interface.
func (c *ChannelImpl) UpdateTiming(now uint64, cmd *signal.Command) {
	for r, rankBanks := range c.Banks {
		for g, group := range rankBanks {
			for b, bank := range group {
				scope := c.scopeOf(cmd.Location,
					uint64(r), uint64(g), uint64(b))
				entries := scope[cmd.Kind]

				for _, entry := range entries {
					bank.PushTiming(entry.NextCmdKind,
						now+uint64(entry.MinCycleInBetween))
				}
			}
		}
	}
}

func (c *ChannelImpl) scopeOf(
	loc addrmap.Location,
	rank, group, bank uint64,
) TimeTable {
	if rank != loc.Rank {
		return c.Timing.OtherRanks
	}

	if group != loc.BankGroup {
		return c.Timing.SameRank
	}

	if bank != loc.Bank {
		return c.Timing.OtherBanksInBankGroup
	}

	return c.Timing.SameBank
}
