package dram

import (
	"github.com/sarchlab/dramctrl/datarecording"
	"github.com/sarchlab/dramctrl/sim"
)

// A CommandTracer records every issued command into a trace database. Attach
// it to a controller with AcceptHook.
type CommandTracer struct {
	recorder  datarecording.DataRecorder
	tableName string
}

// commandTraceEntry is the row format of the command trace table.
type commandTraceEntry struct {
	Cycle     uint64
	Kind      string
	Rank      uint64
	BankGroup uint64
	Bank      uint64
	Row       uint64
	Column    uint64
}

// NewCommandTracer creates a tracer that writes into the given recorder.
// The table is named after the controller so several controllers can share
// one database.
func NewCommandTracer(
	recorder datarecording.DataRecorder,
	ctrl *Comp,
) *CommandTracer {
	t := &CommandTracer{
		recorder:  recorder,
		tableName: tableNameFor(ctrl.Name()),
	}

	recorder.CreateTable(t.tableName, commandTraceEntry{})
	ctrl.AcceptHook(t)

	return t
}

// Func implements the sim.Hook interface.
func (t *CommandTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCmdIssue {
		return
	}

	info := ctx.Item.(CmdIssueInfo)

	t.recorder.InsertData(t.tableName, commandTraceEntry{
		Cycle:     info.Cycle,
		Kind:      info.Kind,
		Rank:      info.Rank,
		BankGroup: info.BankGroup,
		Bank:      info.Bank,
		Row:       info.Row,
		Column:    info.Column,
	})
}

func tableNameFor(compName string) string {
	table := []byte("cmd_trace_")

	for i := 0; i < len(compName); i++ {
		c := compName[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9', c == '_':
			table = append(table, c)
		default:
			table = append(table, '_')
		}
	}

	return string(table)
}
