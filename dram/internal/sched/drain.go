package sched

// Direction is the side of the bus turnaround the controller is currently
// servicing.
type Direction int

// The two service directions.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}

	return "read"
}

// DrainState decides when the controller turns the bus around between reads
// and writes. Reads are serviced by default; writes drain in batches to
// amortize the turnaround penalty.
type DrainState struct {
	HighWatermarkPerc  int
	LowWatermarkPerc   int
	MinWritesPerSwitch int

	direction        Direction
	writesThisSwitch int
}

// Direction returns the current service direction.
func (d *DrainState) Direction() Direction {
	return d.direction
}

// WroteOneBurst records a serviced write burst.
func (d *DrainState) WroteOneBurst() {
	d.writesThisSwitch++
}

// Update re-evaluates the direction from the queue occupancies. It returns
// true when the direction flips.
func (d *DrainState) Update(readQ, writeQ *Queue) bool {
	switch d.direction {
	case DirRead:
		if d.shouldStartWrites(readQ, writeQ) {
			d.direction = DirWrite
			d.writesThisSwitch = 0

			return true
		}
	case DirWrite:
		if d.shouldStopWrites(readQ, writeQ) {
			d.direction = DirRead

			return true
		}
	}

	return false
}

func (d *DrainState) shouldStartWrites(readQ, writeQ *Queue) bool {
	if writeQ.Len() == 0 {
		return false
	}

	// Forced drain: the write buffer is about to reject submissions.
	if writeQ.OccupancyPercent() >= d.HighWatermarkPerc {
		return true
	}

	// Opportunistic drain: nothing to read anyway.
	return readQ.Len() == 0
}

func (d *DrainState) shouldStopWrites(readQ, writeQ *Queue) bool {
	if writeQ.Len() == 0 {
		return true
	}

	if d.writesThisSwitch < d.MinWritesPerSwitch {
		return false
	}

	// Keep draining down to the low watermark so forced switches stay
	// rare, unless there is nothing to read anyway.
	return readQ.Len() > 0 &&
		writeQ.OccupancyPercent() < d.LowWatermarkPerc
}
