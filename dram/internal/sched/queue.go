// Package sched holds the request queues and the policies that pick the
// next request to service.
package sched

import (
	"github.com/sarchlab/dramctrl/dram/internal/addrmap"
	"github.com/sarchlab/dramctrl/dram/internal/signal"
)

// A Queue is a bounded buffer of pending bursts. Entries keep arrival order,
// but the scheduler may service entries out of order.
type Queue struct {
	Capacity int

	bursts []*signal.SubTransaction
}

// NewQueue creates a queue with the given capacity in bursts.
func NewQueue(capacity int) *Queue {
	return &Queue{Capacity: capacity}
}

// CanPush returns true if n more bursts fit in the queue.
func (q *Queue) CanPush(n int) bool {
	return len(q.bursts)+n <= q.Capacity
}

// Push adds bursts to the tail of the queue.
func (q *Queue) Push(bursts ...*signal.SubTransaction) {
	q.bursts = append(q.bursts, bursts...)
}

// Remove drops a burst from the queue after it has been issued.
func (q *Queue) Remove(st *signal.SubTransaction) {
	for i, b := range q.bursts {
		if b == st {
			q.bursts = append(q.bursts[:i], q.bursts[i+1:]...)
			return
		}
	}
}

// Len returns the number of bursts in the queue.
func (q *Queue) Len() int {
	return len(q.bursts)
}

// Bursts returns the queue content in arrival order.
func (q *Queue) Bursts() []*signal.SubTransaction {
	return q.bursts
}

// OccupancyPercent returns the fill level of the queue in percent.
func (q *Queue) OccupancyPercent() int {
	if q.Capacity == 0 {
		return 0
	}

	return len(q.bursts) * 100 / q.Capacity
}

// HasForRow returns true if any queued burst other than st targets the given
// row of the given bank. The adaptive page policies use this look-ahead to
// decide whether to keep a row open.
func (q *Queue) HasForRow(st *signal.SubTransaction, loc addrmap.Location, row uint64) bool {
	for _, b := range q.bursts {
		if b == st {
			continue
		}

		if b.Location.SameBank(loc) && b.Location.Row == row {
			return true
		}
	}

	return false
}

// HasForBankOtherRow returns true if any queued burst other than st targets
// the given bank at a different row.
func (q *Queue) HasForBankOtherRow(st *signal.SubTransaction, loc addrmap.Location, row uint64) bool {
	for _, b := range q.bursts {
		if b == st {
			continue
		}

		if b.Location.SameBank(loc) && b.Location.Row != row {
			return true
		}
	}

	return false
}

// HasForRank returns true if any queued burst targets the given rank.
func (q *Queue) HasForRank(rank uint64) bool {
	for _, b := range q.bursts {
		if b.Location.Rank == rank {
			return true
		}
	}

	return false
}
