package org

import "github.com/sarchlab/dramctrl/dram/internal/signal"

// A Bank tracks the row buffer state and the per-command earliest legal
// issue cycles of one DRAM bank. Banks are plain mutable state shared by the
// scheduler and the refresh logic through the channel; flat indexing by
// (rank, bank group, bank) avoids object-graph aliasing.
type Bank struct {
	hasOpenRow            bool
	openRow               uint64
	accessesSinceActivate int

	lastActivateCycle  uint64
	lastPrechargeCycle uint64

	// earliest[k] is the first cycle at which a command of kind k may be
	// issued to this bank. It only ever moves forward.
	earliest [signal.NumCmdKind]uint64
}

// OpenRow returns the currently open row. The second return value is false
// when the bank is precharged.
func (b *Bank) OpenRow() (uint64, bool) {
	return b.openRow, b.hasOpenRow
}

// AccessesSinceActivate returns the number of column accesses that hit the
// currently open row since it was activated.
func (b *Bank) AccessesSinceActivate() int {
	return b.accessesSinceActivate
}

// EarliestCycle returns the first cycle at which a command of the given kind
// is legal on this bank.
func (b *Bank) EarliestCycle(kind signal.CommandKind) uint64 {
	return b.earliest[kind]
}

// PushTiming delays the given command kind to no earlier than the given
// cycle. Constraint clocks never move backwards.
func (b *Bank) PushTiming(kind signal.CommandKind, cycle uint64) {
	if cycle > b.earliest[kind] {
		b.earliest[kind] = cycle
	}
}

// LastActivateCycle returns the cycle of the most recent activate.
func (b *Bank) LastActivateCycle() uint64 {
	return b.lastActivateCycle
}

// LastPrechargeCycle returns the cycle of the most recent precharge.
func (b *Bank) LastPrechargeCycle() uint64 {
	return b.lastPrechargeCycle
}

func (b *Bank) activate(now, row uint64) {
	b.hasOpenRow = true
	b.openRow = row
	b.accessesSinceActivate = 0
	b.lastActivateCycle = now
}

func (b *Bank) precharge(now uint64) {
	b.hasOpenRow = false
	b.lastPrechargeCycle = now
}

func (b *Bank) access() {
	b.accessesSinceActivate++
}

// Banks is the collection of banks in a channel, indexed by rank, bank
// group, and bank.
type Banks [][][]*Bank

// MakeBanks creates all the banks of a channel.
func MakeBanks(numRank, numBankGroup, numBank int) Banks {
	banks := make(Banks, numRank)
	for i := range banks {
		banks[i] = make([][]*Bank, numBankGroup)
		for j := range banks[i] {
			banks[i][j] = make([]*Bank, numBank)
			for k := range banks[i][j] {
				banks[i][j][k] = &Bank{}
			}
		}
	}

	return banks
}

// GetBank returns the bank at the given coordinate.
func (b Banks) GetBank(rank, bankGroup, bank uint64) *Bank {
	return b[rank][bankGroup][bank]
}
