package sim

import "sync"

// TickEvent is a generic event that almost all the component can use to
// update their status.
type TickEvent struct {
	*EventBase
}

// NewTickEvent creates a newly created TickEvent.
func NewTickEvent(t VTimeInSec, handler Handler) *TickEvent {
	evt := new(TickEvent)
	evt.EventBase = NewEventBase(t, handler)

	return evt
}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick() bool
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Freq    Freq
	Engine  Engine

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	freq Freq,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Freq = freq
	ticker.nextTickTime = -1 // This will make sure the first tick is scheduled

	return ticker
}

// TickNow schedules a Tick event at the current time.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()
	time := t.Now()

	if t.nextTickTime >= time {
		t.lock.Unlock()
		return
	}

	t.nextTickTime = t.Freq.ThisTick(time)
	tick := NewTickEvent(t.nextTickTime, t.handler)

	t.Engine.Schedule(tick)
	t.lock.Unlock()
}

// TickLater will schedule a tick event at the cycle after the now time. A
// pending tick further in the future does not block it, so a sleeping
// component can be woken early.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()
	time := t.Freq.NextTick(t.Now())

	if t.nextTickTime > t.Now() && t.nextTickTime <= time {
		t.lock.Unlock()
		return
	}

	t.nextTickTime = time
	tick := NewTickEvent(t.nextTickTime, t.handler)

	t.Engine.Schedule(tick)
	t.lock.Unlock()
}

// TickAfter schedules a tick event n cycles after the now time. Components
// that know when the next state change can possibly happen use this to sleep
// through the cycles in between, instead of ticking every cycle.
func (t *TickScheduler) TickAfter(n int) {
	if n <= 1 {
		t.TickLater()
		return
	}

	t.lock.Lock()
	time := t.Freq.NCyclesLater(n, t.Now())

	// Skip only if a strictly future tick is already pending at or before
	// the requested time.
	if t.nextTickTime > t.Now() && t.nextTickTime <= time {
		t.lock.Unlock()
		return
	}

	t.nextTickTime = time
	tick := NewTickEvent(t.nextTickTime, t.handler)

	t.Engine.Schedule(tick)
	t.lock.Unlock()
}

// Now returns the current time.
func (t *TickScheduler) Now() VTimeInSec {
	return t.Engine.Now()
}
