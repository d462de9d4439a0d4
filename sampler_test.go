package rossa

import "testing"

// TestSamplerLatencySinglePathOneHop is spec scenario 6: a single flow on
// a single direct path must resolve to a latency of exactly one step. The
// tagged packet always enters as the sole occupant of an otherwise-empty
// bucket (position 0) and is fully sent on the very next step (the
// scheduler always picks the minimal one-phase wait), so the result is
// independent of the sampler's random introduction offset.
func TestSamplerLatencySinglePathOneHop(t *testing.T) {
	top := NewTopology(4, 2, 1, 2)
	top.PortCapacities([]int{50, 50})
	top.PortBandwidths([]int{10, 10})
	top.PushPortOwners([]int{0, 1})
	top.PushFlow(0, 0, 1, 1)
	for phase := 0; phase < 4; phase++ {
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
	sampler := NewSampler(top)
	sim.EnableSampler(sampler)
	sim.Begin()

	// introIndex starts at most at round(1*50+70) = 120; 250 steps leaves
	// ample margin for it to cross zero and for the subsequent one-step
	// transfer to resolve latency.
	for step := 0; step < 250 && sampler.Latency(0) == -1; step++ {
		sim.Step()
	}
	if sampler.Latency(0) != 1 {
		t.Fatalf("latency = %d, want 1 for a single direct hop", sampler.Latency(0))
	}
	if sim.DidOverflow() {
		t.Error("unexpected overflow")
	}
}

func TestSamplerAggregatesUnresolvedIsExcluded(t *testing.T) {
	top := buildRingTopology(4, 5, []Flow{{Ingress: 0, Egress: 3, Amount: 1}})
	if err := top.Setup(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sampler := NewSampler(top)
	sampler.Begin()

	if got := sampler.MaxLatency(); got != -1 {
		t.Errorf("MaxLatency with no resolved flows = %d, want -1", got)
	}
	if got := sampler.AverageLatency(); got != 0 {
		t.Errorf("AverageLatency with no resolved flows = %v, want 0", got)
	}

	sampler.latency[0] = 4
	if got := sampler.MaxLatency(); got != 4 {
		t.Errorf("MaxLatency = %d, want 4", got)
	}
	if got := sampler.AverageLatency(); got != 4 {
		t.Errorf("AverageLatency = %v, want 4", got)
	}
}
