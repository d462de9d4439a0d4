package rossa

import (
	"math"

	"github.com/iti/rngstream"
)

// Sampler tracks one tagged packet per flow as it crosses the network,
// per spec.md §4.G. It observes the same ingress/port-transfer events the
// Simulator already computes; it never drives simulation state itself.
type Sampler struct {
	topology *Topology

	introIndex []int
	entryStep  []int
	position   []int
	port       []int
	phase      []int
	latency    []int

	rng *rngstream.RngStream
}

// NewSampler allocates per-flow sampling state for topology's flow set.
func NewSampler(topology *Topology) *Sampler {
	n := len(topology.Flows())
	return &Sampler{
		topology:   topology,
		introIndex: make([]int, n),
		entryStep:  make([]int, n),
		position:   make([]int, n),
		port:       make([]int, n),
		phase:      make([]int, n),
		latency:    make([]int, n),
	}
}

// Begin re-tags every flow: a fresh introIndex is drawn, and entry/position/
// port/phase/latency are reset to "unresolved", per spec.md §4.G's
// initialization and §6's begin() lifecycle hook. The first Begin creates the
// RNG stream (mrnes/net.go's rngstream.New(name) pattern); every later Begin
// rewinds it to its start, so each run draws the same introIndex values.
func (s *Sampler) Begin() {
	if s.rng == nil {
		s.rng = rngstream.New("sampler")
	} else {
		s.rng.ResetStartStream()
	}
	for f, flow := range s.topology.Flows() {
		u := s.rng.RandU01() * 70.0
		s.introIndex[f] = int(math.Round(float64(flow.Amount)*50.0 + u))
		s.entryStep[f] = -1
		s.position[f] = -1
		s.port[f] = -1
		s.phase[f] = -1
		s.latency[f] = -1
	}
}

// OnIngress records arrival of the tagged packet for flow f once the
// running deduction of introIndex crosses zero, per spec.md §4.G's "on
// ingress addition". choice resolves (phase,node,flow) to the chosen
// (port,phase) the way the Simulator itself would.
func (s *Sampler) OnIngress(f, amount, currentPhase, currentStep int, buf *Buffers, choose func(phase, node, flow int) Choice) {
	if s.introIndex[f] < 0 {
		return
	}
	s.introIndex[f] -= amount
	if s.introIndex[f] >= 0 {
		return
	}
	ingress := s.topology.Flows()[f].Ingress
	c := choose(currentPhase, ingress, f)
	s.port[f] = c.Port
	s.phase[f] = c.Phase
	s.position[f] = buf.Get(c.Phase, c.Port, f) + s.introIndex[f]
	s.entryStep[f] = currentStep
}

// OnPortTransfer records the tagged packet's progress across a port send,
// per spec.md §4.G's "on port transfer".
func (s *Sampler) OnPortTransfer(i, f, pSender, destNode, amountSent, currentStep int, buf *Buffers, choose func(phase, node, flow int) Choice) {
	if s.latency[f] != -1 {
		return
	}
	if pSender != s.port[f] || i != s.phase[f] {
		return
	}
	s.position[f] -= amountSent
	if s.position[f] >= 0 {
		return
	}
	if destNode == s.topology.Flows()[f].Egress {
		s.latency[f] = currentStep - s.entryStep[f]
		s.position[f] = -1
		return
	}
	c := choose(i, destNode, f)
	s.position[f] = buf.Get(c.Phase, c.Port, f) + s.position[f]
	s.port[f] = c.Port
	s.phase[f] = c.Phase
}

// OnReschedule updates flow f's tracked position when its current
// (phase, port) bucket, as a whole, migrates to (newPhase, newPort) during
// reschedule(phase). before is the destination bucket's occupancy prior to
// the migration. Returns whether f's tracked packet was actually in the
// migrated bucket.
func (s *Sampler) OnReschedule(f, phase, port, before, newPhase, newPort int) bool {
	if s.latency[f] != -1 {
		return false
	}
	if s.port[f] != port || s.phase[f] != phase {
		return false
	}
	s.position[f] = before + s.position[f]
	s.port[f] = newPort
	s.phase[f] = newPhase
	return true
}

// Latency returns flow f's currently-resolved latency, or -1 if unresolved.
func (s *Sampler) Latency(f int) int { return s.latency[f] }

// MaxLatency returns the maximum resolved latency across flows, or -1 if
// none have resolved yet. Recovered from the sampling variant's
// maxSampleLatency, per SPEC_FULL.md's supplemented features.
func (s *Sampler) MaxLatency() int {
	max := -1
	for _, l := range s.latency {
		if l > max {
			max = l
		}
	}
	return max
}

// AverageLatency returns the mean resolved latency across flows, or 0 if
// none have resolved yet. Recovered from the sampling variant's
// averageSampleLatency.
func (s *Sampler) AverageLatency() float64 {
	sum, count := 0, 0
	for _, l := range s.latency {
		if l >= 0 {
			sum += l
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}
