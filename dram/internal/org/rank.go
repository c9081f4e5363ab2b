package org

import "github.com/sarchlab/dramctrl/dram/internal/signal"

// PowerState is the power state of a rank.
type PowerState int

// The power states that a rank can be in.
const (
	PowerStateActive PowerState = iota
	PowerStateActivePowerDown
	PowerStatePrechargePowerDown
	PowerStateSelfRefresh
	NumPowerState
)

func (s PowerState) String() string {
	switch s {
	case PowerStateActive:
		return "active"
	case PowerStateActivePowerDown:
		return "active_power_down"
	case PowerStatePrechargePowerDown:
		return "precharge_power_down"
	case PowerStateSelfRefresh:
		return "self_refresh"
	}

	return "unknown"
}

// A Rank tracks the state that is shared by all the banks of a rank: the
// power state, the sliding activation window, the refresh schedule, and the
// counters that feed power estimation.
type Rank struct {
	state           PowerState
	stateSinceCycle uint64

	// actWindow holds the cycles of the most recent activates, bounded by
	// the activation limit. The oldest entry gates the next activate when
	// the window is full.
	actWindow []uint64

	nextRefreshCycle uint64
	lastBusyCycle    uint64

	// StateCycles accumulates the cycles spent in each power state.
	StateCycles [NumPowerState]uint64

	// CmdCounts counts the commands issued to this rank, by kind.
	CmdCounts [signal.NumCmdKind]uint64
}

// NewRank creates a rank in the active state with the first refresh due
// after one refresh interval.
func NewRank(tREFI int) *Rank {
	return &Rank{
		state:            PowerStateActive,
		nextRefreshCycle: uint64(tREFI),
	}
}

// State returns the current power state.
func (r *Rank) State() PowerState {
	return r.state
}

// SetState moves the rank to a new power state, folding the time spent in
// the previous state into the accounting.
func (r *Rank) SetState(now uint64, s PowerState) {
	r.StateCycles[r.state] += now - r.stateSinceCycle
	r.state = s
	r.stateSinceCycle = now
}

// FinalizeStateCycles folds the currently running state interval into the
// accounting, for end-of-simulation reporting.
func (r *Rank) FinalizeStateCycles(now uint64) {
	r.StateCycles[r.state] += now - r.stateSinceCycle
	r.stateSinceCycle = now
}

// RefreshDue returns true when the periodic refresh obligation has come due.
// A rank in self-refresh keeps its cells refreshed internally, so no
// obligation accrues.
func (r *Rank) RefreshDue(now uint64) bool {
	return r.state != PowerStateSelfRefresh && now >= r.nextRefreshCycle
}

// NextRefreshCycle returns the cycle at which the next refresh is due.
func (r *Rank) NextRefreshCycle() uint64 {
	return r.nextRefreshCycle
}

func (r *Rank) refreshStarted(now uint64, tREFI int) {
	r.nextRefreshCycle = now + uint64(tREFI)
}

// DeferRefresh restarts the refresh countdown without a refresh command,
// used when leaving self-refresh.
func (r *Rank) DeferRefresh(now uint64, tREFI int) {
	r.nextRefreshCycle = now + uint64(tREFI)
}

// EarliestActivateCycle returns the first cycle at which the sliding
// activation window admits another activate. A limit of 0 disables the
// window.
func (r *Rank) EarliestActivateCycle(limit, tXAW int) uint64 {
	if limit == 0 || len(r.actWindow) < limit {
		return 0
	}

	oldest := r.actWindow[len(r.actWindow)-limit]

	return oldest + uint64(tXAW)
}

func (r *Rank) recordActivate(now uint64, limit int) {
	if limit == 0 {
		return
	}

	r.actWindow = append(r.actWindow, now)

	// Only the most recent `limit` activates can ever gate a new one.
	if len(r.actWindow) > limit {
		r.actWindow = r.actWindow[len(r.actWindow)-limit:]
	}
}

// LastBusyCycle returns the cycle of the last command issued to the rank.
func (r *Rank) LastBusyCycle() uint64 {
	return r.lastBusyCycle
}
