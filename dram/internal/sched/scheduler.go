package sched

import (
	"sort"

	"github.com/sarchlab/dramctrl/dram/internal/addrmap"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
)

// A BankStateView answers row buffer questions without exposing the full
// channel, keeping the scheduler testable in isolation.
type BankStateView interface {
	OpenRow(loc addrmap.Location) (uint64, bool)
}

// A Scheduler orders the bursts of a queue by service priority. The
// controller walks the candidates in order and issues the first one with a
// legal command this cycle.
type Scheduler interface {
	Candidates(now uint64, q *Queue) []*signal.SubTransaction
}

// FCFSScheduler services requests strictly in arrival order: only the
// oldest burst is ever a candidate.
type FCFSScheduler struct{}

// Candidates returns the oldest burst.
func (s FCFSScheduler) Candidates(
	_ uint64,
	q *Queue,
) []*signal.SubTransaction {
	bursts := q.Bursts()
	if len(bursts) == 0 {
		return nil
	}

	return bursts[:1]
}

// FRFCFSScheduler prefers bursts whose bank already has the right row open,
// falling back to arrival order. A burst that has waited longer than the
// starvation threshold is served strictly oldest-first regardless of
// readiness, so a request that never hits an open row is still bounded.
type FRFCFSScheduler struct {
	BankState           BankStateView
	StarvationThreshold uint64
}

// Candidates returns the queued bursts in service priority order.
func (s FRFCFSScheduler) Candidates(
	now uint64,
	q *Queue,
) []*signal.SubTransaction {
	bursts := q.Bursts()
	if len(bursts) == 0 {
		return nil
	}

	var starved, hits, misses []*signal.SubTransaction

	for _, b := range bursts {
		if s.StarvationThreshold > 0 &&
			now-b.ArrivalCycle() > s.StarvationThreshold {
			starved = append(starved, b)
			continue
		}

		if s.isRowHit(b) {
			hits = append(hits, b)
		} else {
			misses = append(misses, b)
		}
	}

	sortByArrival(starved)
	sortByArrival(hits)
	sortByArrival(misses)

	candidates := append(starved, hits...)

	return append(candidates, misses...)
}

func (s FRFCFSScheduler) isRowHit(b *signal.SubTransaction) bool {
	openRow, open := s.BankState.OpenRow(b.Location)

	return open && openRow == b.Location.Row
}

func sortByArrival(bursts []*signal.SubTransaction) {
	sort.SliceStable(bursts, func(i, j int) bool {
		return bursts[i].ArrivalCycle() < bursts[j].ArrivalCycle()
	})
}
