// Package org models the organization of a DRAM channel: the banks, the
// ranks, and the timing constraints between commands.
package org

import "github.com/sarchlab/dramctrl/dram/internal/signal"

// A TimeTableEntry records the minimum number of cycles that must pass
// between a command and a later command of the given kind.
type TimeTableEntry struct {
	NextCmdKind       signal.CommandKind
	MinCycleInBetween int
}

// A TimeTable lists, for each command kind, the constraints that the command
// imposes on commands that follow it.
type TimeTable map[signal.CommandKind][]TimeTableEntry

// MakeTimeTable returns an empty TimeTable.
func MakeTimeTable() TimeTable {
	return TimeTable{}
}

// Timing is the full constraint table of a channel. Issuing one command
// constrains later commands differently depending on where the later command
// goes, so there is one table per scope. Constraints are a uniform list of
// (command, next command, minimum gap) entries rather than per-constraint
// code, so protocol variants only change table contents.
type Timing struct {
	SameBank              TimeTable
	OtherBanksInBankGroup TimeTable
	SameRank              TimeTable
	OtherRanks            TimeTable
}
