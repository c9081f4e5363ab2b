// Package signal defines the commands and transactions that flow through
// the memory controller.
package signal

import "github.com/sarchlab/dramctrl/dram/internal/addrmap"

// CommandKind is the type of command that is issued to the DRAM devices.
type CommandKind int

// All the supported command kinds.
const (
	CmdKindActivate CommandKind = iota
	CmdKindRead
	CmdKindReadPrecharge
	CmdKindWrite
	CmdKindWritePrecharge
	CmdKindPrecharge
	CmdKindRefresh
	CmdKindPowerDownEnter
	CmdKindPowerDownExit
	CmdKindSRefEnter
	CmdKindSRefExit
	NumCmdKind
)

func (k CommandKind) String() string {
	switch k {
	case CmdKindActivate:
		return "ACT"
	case CmdKindRead:
		return "RD"
	case CmdKindReadPrecharge:
		return "RDA"
	case CmdKindWrite:
		return "WR"
	case CmdKindWritePrecharge:
		return "WRA"
	case CmdKindPrecharge:
		return "PRE"
	case CmdKindRefresh:
		return "REF"
	case CmdKindPowerDownEnter:
		return "PDE"
	case CmdKindPowerDownExit:
		return "PDX"
	case CmdKindSRefEnter:
		return "SRE"
	case CmdKindSRefExit:
		return "SRX"
	}

	return "unknown"
}

// IsAccess returns true if the command kind moves data over the bus.
func (k CommandKind) IsAccess() bool {
	switch k {
	case CmdKindRead, CmdKindReadPrecharge,
		CmdKindWrite, CmdKindWritePrecharge:
		return true
	}

	return false
}

// IsRead returns true for the read flavors.
func (k CommandKind) IsRead() bool {
	return k == CmdKindRead || k == CmdKindReadPrecharge
}

// HasAutoPrecharge returns true if the command closes the row after the
// access.
func (k CommandKind) HasAutoPrecharge() bool {
	return k == CmdKindReadPrecharge || k == CmdKindWritePrecharge
}

// RankScoped returns true if the command targets the whole rank rather than
// a single bank.
func (k CommandKind) RankScoped() bool {
	switch k {
	case CmdKindRefresh, CmdKindPowerDownEnter, CmdKindPowerDownExit,
		CmdKindSRefEnter, CmdKindSRefExit:
		return true
	}

	return false
}

// A Command is a single DRAM command ready to be issued over the command
// bus.
type Command struct {
	ID       string
	Kind     CommandKind
	Location addrmap.Location

	// SubTrans is the burst that the command serves. It is nil for
	// commands that do not move data.
	SubTrans *SubTransaction
}
