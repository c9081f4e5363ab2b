package main

import (
	"errors"
	"math/rand"

	"github.com/sarchlab/dramctrl/dram"
	"github.com/sarchlab/dramctrl/sim"
)

const requestBytes = 64

// trafficGen submits random requests to one controller, one request every
// few cycles, retrying when the controller queues are full.
type trafficGen struct {
	engine sim.Engine
	ctrl   *dram.Comp
	rng    *rand.Rand

	remaining int
	completed int
	period    sim.VTimeInSec
}

type submitEvent struct {
	*sim.EventBase
}

func newTrafficGen(engine sim.Engine, ctrl *dram.Comp) *trafficGen {
	return &trafficGen{
		engine:    engine,
		ctrl:      ctrl,
		rng:       rand.New(rand.NewSource(flagSeed)),
		remaining: flagRequests,
		period:    ctrl.Freq.Period() * 4,
	}
}

func (g *trafficGen) start() {
	if g.remaining == 0 {
		return
	}

	g.engine.Schedule(&submitEvent{
		EventBase: sim.NewEventBase(g.period, g),
	})
}

func (g *trafficGen) Handle(evt sim.Event) error {
	err := g.submitOne()

	// Multi-channel presets own only a slice of the address space, and
	// max-address may overshoot the device; redraw until an address lands
	// on this controller.
	var addrErr *dram.InvalidAddressError
	var rangeErr *dram.OutOfRangeError
	for errors.As(err, &addrErr) || errors.As(err, &rangeErr) {
		err = g.submitOne()
	}

	if errors.Is(err, dram.ErrQueueFull) {
		// Back off and retry the same slot later.
		g.engine.Schedule(&submitEvent{
			EventBase: sim.NewEventBase(evt.Time()+g.period*16, g),
		})

		return nil
	}
	if err != nil {
		return err
	}

	g.remaining--
	if g.remaining > 0 {
		g.engine.Schedule(&submitEvent{
			EventBase: sim.NewEventBase(evt.Time()+g.period, g),
		})
	}

	return nil
}

func (g *trafficGen) submitOne() error {
	addr := g.rng.Uint64() % flagMaxAddress
	addr = addr / requestBytes * requestBytes

	isWrite := g.rng.Float64() >= flagReadRatio

	var data []byte
	if isWrite {
		data = make([]byte, requestBytes)
		g.rng.Read(data)
	}

	return g.ctrl.Submit(addr, requestBytes, isWrite, data,
		func(dram.Completion) { g.completed++ })
}
