package rossa

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// PhaseDriver wraps a Simulator in an evtm.EventManager self-rescheduling
// tick loop, the way mrnes/flow.go's bgfPcktArrivals reschedules itself via
// evtMgr.Schedule(..., vrtime.SecondsToTime(interarrival)). It is the
// optional embedding surface a host driver uses instead of calling Step in
// a bare loop; Step's own semantics are unchanged either way. Owning and
// running the EventManager (evtMgr.Run / equivalent) is the host's job, as
// it is for every other evtm-driven component in the corpus.
type PhaseDriver struct {
	sim      *Simulator
	interval float64 // virtual seconds between ticks

	// OnTick, if set, is invoked after every Step with the simulator's
	// CurrentStep, i.e. the number of steps completed so far.
	OnTick func(step int)

	stopped bool
}

// NewPhaseDriver constructs a driver that advances sim by one phase every
// interval virtual seconds once started.
func NewPhaseDriver(sim *Simulator, interval float64) *PhaseDriver {
	return &PhaseDriver{sim: sim, interval: interval}
}

// Start schedules the first tick at virtual time 0 on evtMgr.
func (d *PhaseDriver) Start(evtMgr *evtm.EventManager) {
	d.stopped = false
	evtMgr.Schedule(d, nil, phaseDriverTick, vrtime.SecondsToTime(0.0))
}

// Stop prevents the next scheduled tick from rescheduling itself again.
func (d *PhaseDriver) Stop() { d.stopped = true }

// phaseDriverTick is the evtm.EventHandlerFunction bound to each tick: it
// advances the simulator by one phase, notifies OnTick, and reschedules
// itself, mirroring bgfPcktArrivals's self-reschedule structure.
func phaseDriverTick(evtMgr *evtm.EventManager, context any, data any) any {
	d := context.(*PhaseDriver)
	if d.stopped {
		return nil
	}
	d.sim.Step()
	if d.OnTick != nil {
		d.OnTick(d.sim.CurrentStep())
	}
	evtMgr.Schedule(d, data, phaseDriverTick, vrtime.SecondsToTime(d.interval))
	return nil
}
