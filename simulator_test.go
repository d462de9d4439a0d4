package rossa

import "testing"

// TestSimulatorFourByFiveNoOverflow is spec scenario 1: a 4-phase, 5-node
// topology, K=1 fixed scheduler, one light flow — must run 100 steps
// without overflowing.
func TestSimulatorFourByFiveNoOverflow(t *testing.T) {
	top := buildRingTopology(4, 5, []Flow{{Ingress: 0, Egress: 3, Amount: 1}})
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := NewTemporalGraph(top)
	sched := NewFixedScheduler(top, tg, Quickest)
	sim, err := NewSimulator(top, sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Begin()
	for step := 0; step < 100; step++ {
		sim.Step()
	}
	if sim.DidOverflow() {
		t.Error("unexpected overflow with a single light flow and ample capacity")
	}
}

// TestSimulatorPhaseCyclicity checks that currentPhase returns to its
// original value after exactly NumPhases steps.
func TestSimulatorPhaseCyclicity(t *testing.T) {
	top := buildRingTopology(4, 5, []Flow{{Ingress: 0, Egress: 3, Amount: 1}})
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := NewTemporalGraph(top)
	sim, err := NewSimulator(top, NewFixedScheduler(top, tg, Quickest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Begin()
	start := sim.CurrentPhase()
	for step := 0; step < top.NumPhases; step++ {
		sim.Step()
	}
	if sim.CurrentPhase() != start {
		t.Errorf("phase after %d steps = %d, want %d", top.NumPhases, sim.CurrentPhase(), start)
	}
}

// TestSimulatorOverflowDetection is spec scenario 5: an injected amount
// exceeding capacity with a zero-bandwidth port (nowhere to drain) must
// flag overflow within one step.
func TestSimulatorOverflowDetection(t *testing.T) {
	top := NewTopology(2, 2, 1, 2)
	top.PortCapacities([]int{5, 50})
	top.PortBandwidths([]int{0, 10}) // port0 (node0's only outlet) never drains
	top.PushPortOwners([]int{0, 1})
	top.PushFlow(0, 0, 1, 6) // amount = capacity + 1
	for phase := 0; phase < 2; phase++ {
		top.PushTopology(phase, []int{1, 0})
	}
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := NewTemporalGraph(top)
	sim, err := NewSimulator(top, NewFixedScheduler(top, tg, Quickest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Begin()

	overflowed := false
	for step := 0; step < top.NumPhases; step++ {
		sim.Step()
		if sim.DidOverflow() {
			overflowed = true
			break
		}
	}
	if !overflowed {
		t.Errorf("expected overflow within %d steps", top.NumPhases)
	}
}

// TestSimulatorConservation checks that, for a direct single-hop flow, the
// change in total buffered packets equals ingress injected minus the
// amount that departed the network this step.
func TestSimulatorConservation(t *testing.T) {
	top := NewTopology(3, 2, 1, 2)
	top.PortCapacities([]int{50, 50})
	top.PortBandwidths([]int{10, 10})
	top.PushPortOwners([]int{0, 1})
	top.PushFlow(0, 0, 1, 3)
	for phase := 0; phase < 3; phase++ {
		top.PushTopology(phase, []int{1, 0})
	}
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := NewTemporalGraph(top)
	sim, err := NewSimulator(top, NewFixedScheduler(top, tg, Quickest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Begin()

	for step := 0; step < 20; step++ {
		before := sim.PacketsInNetwork()
		sim.Step()
		after := sim.PacketsInNetwork()
		departed := sim.LastSent(0)
		want := 3 - departed
		if got := after - before; got != want {
			t.Fatalf("step %d: buffered delta = %d, want %d (ingress 3 - departed %d)", step, got, want, departed)
		}
	}
}

// TestSimulatorFairShareRoundingBound checks spec.md §8's fair-share
// property: the aggregate sent from a port never exceeds min(bandwidth,
// portBuffered), and undershoots it by at most F-1 rounding units.
func TestSimulatorFairShareRoundingBound(t *testing.T) {
	flows := []Flow{
		{Ingress: 0, Egress: 3, Amount: 3},
		{Ingress: 1, Egress: 3, Amount: 2},
	}
	top := buildRingTopology(4, 5, flows)
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := NewTemporalGraph(top)
	sim, err := NewSimulator(top, NewFixedScheduler(top, tg, Quickest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Begin()

	for step := 0; step < 10; step++ {
		phase := sim.CurrentPhase()
		buffered := make([]int, top.NumPorts)
		for p := 0; p < top.NumPorts; p++ {
			buffered[p] = sim.Buffers().PortBuffered(phase, p)
		}
		sim.Step()
		for p := 0; p < top.NumPorts; p++ {
			bound := top.Bandwidth(p)
			if buffered[p] < bound {
				bound = buffered[p]
			}
			sent := sim.LastSent(p)
			if sent > bound {
				t.Fatalf("step %d port %d: sent %d exceeds bound %d", step, p, sent, bound)
			}
			if bound-sent > len(flows)-1 {
				t.Fatalf("step %d port %d: sent %d undershoots bound %d by more than %d",
					step, p, sent, bound, len(flows)-1)
			}
		}
	}
}

// TestSimulatorIdempotentReschedule runs reschedule(phase) twice in a row
// and checks the second run changes nothing.
func TestSimulatorIdempotentReschedule(t *testing.T) {
	top := buildRingTopology(4, 5, []Flow{{Ingress: 0, Egress: 3, Amount: 1}})
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tg := NewTemporalGraph(top)
	sim, err := NewSimulator(top, NewFixedScheduler(top, tg, Quickest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Begin()
	// Build up some buffered state to reschedule.
	for step := 0; step < 3; step++ {
		sim.Step()
	}

	phase := sim.CurrentPhase()
	sim.reschedule(phase)
	snapshot := append([]int(nil), sim.buf.values...)
	sim.reschedule(phase)
	for i, v := range sim.buf.values {
		if v != snapshot[i] {
			t.Fatalf("reschedule was not idempotent at buffer index %d: %d vs %d", i, v, snapshot[i])
		}
	}
}
