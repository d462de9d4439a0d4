package rossa

import (
	"github.com/iti/rngstream"
)

// Chooser is the interface all three scheduler variants implement, per
// spec.md §4.D: PrepareChoices is called once per simulation step before
// any Choice queries for that step, and Choice answers "which port to
// place a packet on, and for which phase to commit it" for a given
// (phase, node, flow). Every implementation must satisfy the postcondition
// owner[choice.Port] = node.
type Chooser interface {
	PrepareChoices()
	Choice(phase, node, flow int) Choice
	// Begin resets any per-run state (PRNG reseed for the randomized
	// variant; a no-op for the others) and is called once per spec.md §6's
	// "begin()" lifecycle hook.
	Begin()
}

// fixedKey identifies a cached fixed-scheduler lookup.
type fixedKey struct {
	phase, node, egress int
}

// FixedScheduler caches a single best candidate per (phase, node, egress),
// computing it lazily via Router on first miss. Grounded on
// demonstration/schedulers/fixed/graph_ext.cpp's cachedChoice/
// computeToDestination.
type FixedScheduler struct {
	topology *Topology
	tg       *TemporalGraph
	policy   CostPolicy

	cache map[fixedKey]Choice
}

// NewFixedScheduler builds a FixedScheduler over topology/flows using tg
// and the given cost policy. K is implicitly 1: only the single best
// candidate is ever retained.
func NewFixedScheduler(topology *Topology, tg *TemporalGraph, policy CostPolicy) *FixedScheduler {
	return &FixedScheduler{
		topology: topology,
		tg:       tg,
		policy:   policy,
		cache:    make(map[fixedKey]Choice),
	}
}

func (s *FixedScheduler) Begin()          {}
func (s *FixedScheduler) PrepareChoices() {}

// Choice returns the cached (or newly computed) best choice for routing
// flow f, currently at node, during phase.
func (s *FixedScheduler) Choice(phase, node, flow int) Choice {
	egress := s.topology.Flows()[flow].Egress
	key := fixedKey{phase: phase, node: node, egress: egress}
	if c, ok := s.cache[key]; ok {
		return c
	}
	s.populate(egress)
	if c, ok := s.cache[key]; ok {
		return c
	}
	// No PhasePort successor exists for this (phase,node): spec.md §4.D's
	// "shouldn't happen under a well-formed topology" fallback, mirroring
	// the original findOwnedPort — an arbitrary owned port of node.
	owned := s.topology.OwnedPorts(node)
	if len(owned) == 0 {
		return Choice{Port: 0, Phase: phase}
	}
	fallback := Choice{Port: owned[0], Phase: s.tg.PhaseAdd(phase, 1)}
	s.cache[key] = fallback
	return fallback
}

func (s *FixedScheduler) populate(egress int) {
	table := NewRouter(s.tg, s.policy, 1).Compute(egress)
	t := s.topology
	for phase := 0; phase < t.NumPhases; phase++ {
		for node := 0; node < t.NumNodes; node++ {
			cands := table.Candidates(phase, node)
			if len(cands) == 0 {
				continue
			}
			s.cache[fixedKey{phase: phase, node: node, egress: egress}] = cands[0]
		}
	}
}

// hashBounded strongly-universally hashes x into [0, m), per spec.md §4.D's
// randomized variant and demonstration/schedulers/rnd_choice/graph_ext.cpp's
// hash_bounded.
func hashBounded(x uint64, m uint64) uint64 {
	const a uint64 = 0x28ec0f222c79fb46
	const b uint64 = 0x2179c594b7d54ca2
	return (((a*x + b) >> 32) * m) >> 32
}

// RandomizedScheduler runs the Router once per distinct egress node present
// in the flow set and, on each PrepareChoices draw, selects among the
// cached candidates for (phase,node) using randomized hashing of a fresh
// per-step draw, per spec.md §4.D.
type RandomizedScheduler struct {
	topology *Topology
	tg       *TemporalGraph
	policy   CostPolicy
	k        int

	tablesByEgress map[int]*ChoiceTable
	flowEgress     []int

	rng *rngstream.RngStream
	r   uint64
}

// NewRandomizedScheduler builds a RandomizedScheduler for topology/flows.
func NewRandomizedScheduler(topology *Topology, tg *TemporalGraph, policy CostPolicy, k int) *RandomizedScheduler {
	s := &RandomizedScheduler{
		topology:       topology,
		tg:             tg,
		policy:         policy,
		k:              k,
		tablesByEgress: make(map[int]*ChoiceTable),
		flowEgress:     make([]int, len(topology.Flows())),
	}
	for egress := 0; egress < topology.NumNodes; egress++ {
		isDest := false
		for _, f := range topology.Flows() {
			if f.Egress == egress {
				isDest = true
				break
			}
		}
		if isDest {
			s.tablesByEgress[egress] = NewRouter(tg, policy, k).Compute(egress)
		}
	}
	for i, f := range topology.Flows() {
		s.flowEgress[i] = f.Egress
	}
	return s
}

// Begin resets the PRNG to the start of the stream named "123456", per
// spec.md §5/§6: a full simulation replay after Begin produces identical
// step-by-step trajectories. The stream is created once (mrnes/net.go's
// rngstream.New(name) pattern) and rewound on every later Begin, since each
// rngstream.New call starts a different stream.
func (s *RandomizedScheduler) Begin() {
	if s.rng == nil {
		s.rng = rngstream.New("123456")
	} else {
		s.rng.ResetStartStream()
	}
	s.r = 0
}

// PrepareChoices draws the next random value used by every Choice query
// until the following PrepareChoices call.
func (s *RandomizedScheduler) PrepareChoices() {
	if s.rng == nil {
		s.rng = rngstream.New("123456")
	}
	s.r = uint64(s.rng.RandU01() * 4294967296.0)
}

// Choice selects among the cached candidates for (phase,node) using the
// current draw, strongly-universally hashed into the candidate list's
// length.
func (s *RandomizedScheduler) Choice(phase, node, flow int) Choice {
	egress := s.flowEgress[flow]
	table := s.tablesByEgress[egress]
	cands := table.Candidates(phase, node)
	if len(cands) == 0 {
		owned := s.topology.OwnedPorts(node)
		if len(owned) == 0 {
			return Choice{Port: 0, Phase: phase}
		}
		return Choice{Port: owned[0], Phase: s.tg.PhaseAdd(phase, 1)}
	}
	x := uint64(uint32(phase)<<16+uint32(node)) ^ s.r
	idx := hashBounded(x, uint64(len(cands)))
	return cands[idx]
}

// CapacityAwareScheduler runs the Router once per flow's egress and, for
// each Choice query, scans the candidate list in cost order and returns the
// first candidate whose total port load is below the configured threshold,
// falling back to the lowest-cost candidate if none qualify. Grounded on
// demonstration/schedulers/capacity/ext.cpp's FlowSolution::getChoice.
type CapacityAwareScheduler struct {
	topology  *Topology
	tg        *TemporalGraph
	policy    CostPolicy
	k         int
	threshold float64

	buffers *Buffers

	tablesByFlow []*ChoiceTable
}

// NewCapacityAwareScheduler builds a CapacityAwareScheduler against buffers,
// which the scheduler reads on every Choice query per spec.md §4.D. Pass any
// *Buffers to build and test the routing tables standalone; when wiring into
// a Simulator, NewSimulator rebinds buffers to its own live array (see
// bindBuffers), since the scheduler must exist before NewSimulator allocates
// the array it will actually mutate.
func NewCapacityAwareScheduler(topology *Topology, tg *TemporalGraph, policy CostPolicy, k int, threshold float64, buffers *Buffers) *CapacityAwareScheduler {
	s := &CapacityAwareScheduler{
		topology:  topology,
		tg:        tg,
		policy:    policy,
		k:         k,
		threshold: threshold,
		buffers:   buffers,
	}
	flows := topology.Flows()
	s.tablesByFlow = make([]*ChoiceTable, len(flows))
	cache := make(map[int]*ChoiceTable)
	for i, f := range flows {
		table, ok := cache[f.Egress]
		if !ok {
			table = NewRouter(tg, policy, k).Compute(f.Egress)
			cache[f.Egress] = table
		}
		s.tablesByFlow[i] = table
	}
	return s
}

// bindBuffers lets a Simulator rebind this scheduler to the live Buffers it
// owns, so TotalPortLoad reads the array the Simulator actually mutates
// rather than whatever snapshot NewCapacityAwareScheduler was built against.
// See NewSimulator.
func (s *CapacityAwareScheduler) bindBuffers(buffers *Buffers) {
	s.buffers = buffers
}

// Begin is a no-op: the capacity-aware variant carries no PRNG state.
func (s *CapacityAwareScheduler) Begin() {}

// PrepareChoices is a no-op per spec.md §4.D: this variant's choice is a
// pure function of the current buffer snapshot.
func (s *CapacityAwareScheduler) PrepareChoices() {}

// Choice returns the first candidate for (phase,node) whose TotalPortLoad
// is below the threshold, or the lowest-cost candidate if none qualify.
func (s *CapacityAwareScheduler) Choice(phase, node, flow int) Choice {
	table := s.tablesByFlow[flow]
	cands := table.Candidates(phase, node)
	if len(cands) == 0 {
		owned := s.topology.OwnedPorts(node)
		if len(owned) == 0 {
			return Choice{Port: 0, Phase: phase}
		}
		return Choice{Port: owned[0], Phase: s.tg.PhaseAdd(phase, 1)}
	}
	for _, c := range cands {
		if s.buffers.TotalPortLoad(s.topology, c.Port) < s.threshold {
			return c
		}
	}
	return cands[0]
}
