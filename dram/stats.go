package dram

import (
	"github.com/sarchlab/dramctrl/dram/internal/org"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
)

// CurrentDraw lists the datasheet currents and voltages the energy model
// uses. Currents are in mA, voltages in V. The *2 fields describe the
// second supply rail and are zero for single-rail devices.
type CurrentDraw struct {
	IDD0  float64
	IDD02 float64

	IDD2N  float64
	IDD2N2 float64
	IDD2P0 float64
	IDD2P1 float64

	IDD3N  float64
	IDD3N2 float64
	IDD3P0 float64
	IDD3P1 float64

	IDD4R  float64
	IDD4R2 float64
	IDD4W  float64
	IDD4W2 float64

	IDD5  float64
	IDD52 float64
	IDD6  float64
	IDD62 float64

	VDD  float64
	VDD2 float64
}

// RankStats reports the activity and the estimated energy of one rank.
// Energies are in pJ, power in mW.
type RankStats struct {
	ActiveCycles             uint64
	ActivePowerDownCycles    uint64
	PrechargePowerDownCycles uint64
	SelfRefreshCycles        uint64

	NumActivates     uint64
	NumPrecharges    uint64
	NumReads         uint64
	NumWrites        uint64
	NumRefreshes     uint64
	NumPowerDowns    uint64
	NumSelfRefreshes uint64

	ActEnergy        float64
	ReadEnergy       float64
	WriteEnergy      float64
	RefreshEnergy    float64
	BackgroundEnergy float64
	TotalEnergy      float64

	AveragePower float64
}

// Stats is a snapshot of the controller counters.
type Stats struct {
	NumReadTransactions  uint64
	NumWriteTransactions uint64
	NumReadBursts        uint64
	NumWriteBursts       uint64
	NumRejections        uint64

	RowHits   uint64
	RowMisses uint64

	ReadsCompleted    uint64
	WritesCompleted   uint64
	TotalReadLatency  uint64
	TotalWriteLatency uint64

	Ranks []RankStats
}

// RowHitRate returns the fraction of column accesses that hit an open row.
func (s Stats) RowHitRate() float64 {
	total := s.RowHits + s.RowMisses
	if total == 0 {
		return 0
	}

	return float64(s.RowHits) / float64(total)
}

// AvgReadLatency returns the mean read latency in cycles.
func (s Stats) AvgReadLatency() float64 {
	if s.ReadsCompleted == 0 {
		return 0
	}

	return float64(s.TotalReadLatency) / float64(s.ReadsCompleted)
}

// AvgWriteLatency returns the mean write latency in cycles.
func (s Stats) AvgWriteLatency() float64 {
	if s.WritesCompleted == 0 {
		return 0
	}

	return float64(s.TotalWriteLatency) / float64(s.WritesCompleted)
}

// Stats returns a snapshot of the controller counters, with per-rank
// energy estimated from the datasheet currents.
func (c *Comp) Stats() Stats {
	now := c.Freq.Cycle(c.Now())

	s := Stats{
		NumReadTransactions:  c.numReadTransactions,
		NumWriteTransactions: c.numWriteTransactions,
		NumReadBursts:        c.numReadBursts,
		NumWriteBursts:       c.numWriteBursts,
		NumRejections:        c.numRejections,
		RowHits:              c.rowHits,
		RowMisses:            c.rowMisses,
		ReadsCompleted:       c.readsCompleted,
		WritesCompleted:      c.writesCompleted,
		TotalReadLatency:     c.totalReadLatency,
		TotalWriteLatency:    c.totalWriteLatency,
	}

	for r := 0; r < c.channel.NumRanks(); r++ {
		s.Ranks = append(s.Ranks, c.rankStats(now, c.channel.Rank(uint64(r))))
	}

	return s
}

func (c *Comp) rankStats(now uint64, rank *org.Rank) RankStats {
	rank.FinalizeStateCycles(now)

	rs := RankStats{
		ActiveCycles: rank.StateCycles[org.PowerStateActive],
		ActivePowerDownCycles: rank.
			StateCycles[org.PowerStateActivePowerDown],
		PrechargePowerDownCycles: rank.
			StateCycles[org.PowerStatePrechargePowerDown],
		SelfRefreshCycles: rank.StateCycles[org.PowerStateSelfRefresh],

		NumActivates:  rank.CmdCounts[signal.CmdKindActivate],
		NumPrecharges: rank.CmdCounts[signal.CmdKindPrecharge],
		NumReads: rank.CmdCounts[signal.CmdKindRead] +
			rank.CmdCounts[signal.CmdKindReadPrecharge],
		NumWrites: rank.CmdCounts[signal.CmdKindWrite] +
			rank.CmdCounts[signal.CmdKindWritePrecharge],
		NumRefreshes:     rank.CmdCounts[signal.CmdKindRefresh],
		NumPowerDowns:    rank.CmdCounts[signal.CmdKindPowerDownEnter],
		NumSelfRefreshes: rank.CmdCounts[signal.CmdKindSRefEnter],
	}

	c.estimateEnergy(&rs)

	if now > 0 {
		// pJ over ns gives mW.
		rs.AveragePower = rs.TotalEnergy / (float64(now) * c.tCK)
	}

	return rs
}

// estimateEnergy follows the usual datasheet arithmetic: each command class
// draws its current over its own window on top of the background current of
// the power state. mA times V times ns yields pJ.
func (c *Comp) estimateEnergy(rs *RankStats) {
	cur := c.current
	if cur.VDD == 0 {
		return
	}

	tRC := float64(c.timing.tRAS + c.timing.tRP)
	tRAS := float64(c.timing.tRAS)
	tRP := float64(c.timing.tRP)

	actCharge := cur.IDD0*tRC - (cur.IDD3N*tRAS + cur.IDD2N*tRP)
	if actCharge < 0 {
		actCharge = 0
	}

	rail := func(i1, i2, cycles float64) float64 {
		return (i1*cur.VDD + i2*cur.VDD2) * cycles * c.tCK
	}

	burst := float64(c.timing.tBURST)

	rs.ActEnergy = float64(rs.NumActivates) * actCharge * cur.VDD * c.tCK
	rs.ReadEnergy = float64(rs.NumReads) *
		rail(cur.IDD4R-cur.IDD3N, cur.IDD4R2-cur.IDD3N2, burst)
	rs.WriteEnergy = float64(rs.NumWrites) *
		rail(cur.IDD4W-cur.IDD3N, cur.IDD4W2-cur.IDD3N2, burst)
	rs.RefreshEnergy = float64(rs.NumRefreshes) *
		rail(cur.IDD5-cur.IDD3N, cur.IDD52-cur.IDD3N2,
			float64(c.timing.tRFC))

	rs.BackgroundEnergy = rail(cur.IDD3N, cur.IDD3N2,
		float64(rs.ActiveCycles)) +
		rail(cur.IDD3P1, 0, float64(rs.ActivePowerDownCycles)) +
		rail(cur.IDD2P1, 0, float64(rs.PrechargePowerDownCycles)) +
		rail(cur.IDD6, cur.IDD62, float64(rs.SelfRefreshCycles))

	rs.TotalEnergy = rs.ActEnergy + rs.ReadEnergy + rs.WriteEnergy +
		rs.RefreshEnergy + rs.BackgroundEnergy
}
