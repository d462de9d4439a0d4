package rossa

import "math"

// Simulator is the phase-stepped state machine described in spec.md §4.F:
// a deterministic transition over per-(phase,port,flow) Buffers, driven by
// a Chooser for every routing decision.
type Simulator struct {
	topology  *Topology
	scheduler Chooser
	buf       *Buffers
	sampler   *Sampler
	trace     *TraceManager

	currentPhase int
	currentStep  int
	didOverflow  bool

	lastSent               []int // per port, this step's aggregate send
	maxSendFromPortInPhase []int // per port, running high-water mark

	// Reschedule, indexed by phase, toggles whether step 5 invokes
	// reschedule(phase) for that phase. Nil (the NewSimulator default)
	// means no phase ever reschedules, per spec.md §9's second open
	// question ("the spec leaves enablement to the embedding layer").
	Reschedule []bool

	// IngressAmount, if set, overrides Flow.Amount for ingress injection at
	// (phase, flow), implementing the demand-driven variant recovered from
	// model_declarations_sampling.c's <<DEMAND_INJECTION>> slot. Nil uses
	// the static Flow.Amount.
	IngressAmount func(phase, flow int) int

	sentScratch *Buffers
	recvScratch *Buffers
	moveScratch []reschedMove
}

// bufferBindable is implemented by schedulers that must track the live
// Buffers a Simulator mutates, rather than a snapshot fixed at construction
// (CapacityAwareScheduler). NewSimulator rebinds any such scheduler to its
// own buffer array, since the scheduler is necessarily constructed before
// NewSimulator is called and so cannot see that array up front.
type bufferBindable interface {
	bindBuffers(buf *Buffers)
}

// NewSimulator validates topology and scheduler against each other
// (verifyTopology via topology.Setup having already run, verifyScheduler
// here) and constructs a Simulator ready for Begin.
func NewSimulator(topology *Topology, scheduler Chooser) (*Simulator, error) {
	sim := &Simulator{
		topology:               topology,
		scheduler:              scheduler,
		buf:                    NewBuffers(topology.NumPhases, topology.NumPorts, topology.NumFlows),
		lastSent:               make([]int, topology.NumPorts),
		maxSendFromPortInPhase: make([]int, topology.NumPorts),
		sentScratch:            NewBuffers(topology.NumPhases, topology.NumPorts, topology.NumFlows),
		recvScratch:            NewBuffers(topology.NumPhases, topology.NumPorts, topology.NumFlows),
	}
	if b, ok := scheduler.(bufferBindable); ok {
		b.bindBuffers(sim.buf)
	}
	if err := verifyScheduler(topology, scheduler); err != nil {
		return nil, err
	}
	return sim, nil
}

// EnableSampler attaches a Sampler to the simulator; its lifecycle follows
// the simulator's own Begin/Step calls from this point on.
func (s *Simulator) EnableSampler(sampler *Sampler) { s.sampler = sampler }

// EnableTrace attaches a TraceManager; see trace.go.
func (s *Simulator) EnableTrace(trace *TraceManager) { s.trace = trace }

// verifyScheduler checks, for every (phase, node, flow), that
// owner[choice(phase,node,flow).port] = node, per spec.md §4.F. A violation
// is an implementation bug in the Router, not a caller-recoverable
// condition — this is checked once at construction, before any step runs.
func verifyScheduler(topology *Topology, scheduler Chooser) error {
	scheduler.PrepareChoices()
	for phase := 0; phase < topology.NumPhases; phase++ {
		for node := 0; node < topology.NumNodes; node++ {
			for f := range topology.Flows() {
				c := scheduler.Choice(phase, node, f)
				if topology.Owner(c.Port) != node {
					return &SchedulerError{Phase: phase, Node: node, Flow: f, Port: c.Port}
				}
			}
		}
	}
	return nil
}

// Begin resets all per-run state: buffers cleared, overflow flag lowered,
// phase/step counters zeroed, and the scheduler (and sampler, if attached)
// reseeded, per spec.md §6's begin() lifecycle hook.
func (s *Simulator) Begin() {
	s.buf.Fill(0)
	s.didOverflow = false
	s.currentPhase = 0
	s.currentStep = 0
	for p := range s.lastSent {
		s.lastSent[p] = 0
		s.maxSendFromPortInPhase[p] = 0
	}
	s.scheduler.Begin()
	if s.sampler != nil {
		s.sampler.Begin()
	}
	if s.trace != nil {
		s.trace.Event(s.currentStep, "begin", nil)
	}
}

func (s *Simulator) choose(phase, node, flow int) Choice {
	c := s.scheduler.Choice(phase, node, flow)
	if s.topology.Owner(c.Port) != node {
		panic(&SchedulerError{Phase: phase, Node: node, Flow: flow, Port: c.Port})
	}
	return c
}

// Step executes one phase tick: the nine-step transition of spec.md §4.F.
func (s *Simulator) Step() {
	t := s.topology
	i := s.currentPhase

	// 1. prepareChoices
	s.scheduler.PrepareChoices()

	// 2. compute sent: fair-share proportional rounding of each port's
	// buffered packets against its bandwidth.
	s.sentScratch.Fill(0)
	for p := 0; p < t.NumPorts; p++ {
		buffered := s.buf.PortBuffered(i, p)
		s.lastSent[p] = 0
		if buffered == 0 {
			continue
		}
		sendable := t.Bandwidth(p)
		if buffered < sendable {
			sendable = buffered
		}
		for f := 0; f < t.NumFlows; f++ {
			amt := s.buf.Get(i, p, f)
			if amt == 0 {
				continue
			}
			sent := int(math.Round(float64(amt) * float64(sendable) / float64(buffered)))
			s.sentScratch.Set(i, p, f, sent)
			s.lastSent[p] += sent
		}
		if s.lastSent[p] > s.maxSendFromPortInPhase[p] {
			s.maxSendFromPortInPhase[p] = s.lastSent[p]
		}
	}

	// 3. compute received
	s.recvScratch.Fill(0)
	flows := t.Flows()
	for p := 0; p < t.NumPorts; p++ {
		dst := t.Target(i, p)
		for f := 0; f < t.NumFlows; f++ {
			amt := s.sentScratch.Get(i, p, f)
			if amt == 0 {
				continue
			}
			if dst != flows[f].Egress {
				c := s.choose(i, dst, f)
				s.recvScratch.Add(c.Phase, c.Port, f, amt)
			}
		}
	}

	// 4. apply deltas
	for p := 0; p < t.NumPorts; p++ {
		for f := 0; f < t.NumFlows; f++ {
			if sent := s.sentScratch.Get(i, p, f); sent != 0 {
				s.buf.Add(i, p, f, -sent)
			}
		}
	}
	for j := 0; j < t.NumPhases; j++ {
		for p := 0; p < t.NumPorts; p++ {
			for f := 0; f < t.NumFlows; f++ {
				if r := s.recvScratch.Get(j, p, f); r != 0 {
					s.buf.Add(j, p, f, r)
				}
			}
		}
	}

	// 5. optional reschedule
	if s.Reschedule != nil && i < len(s.Reschedule) && s.Reschedule[i] {
		s.reschedule(i)
	}

	// 6. sample on transfer. Must run after step 4's delta application (and
	// any step 5 reschedule), but before step 7's ingress injection: the
	// re-targeted position read (sampler.go's buf.Get(c.Phase,c.Port,f))
	// needs the post-delta occupancy, which already includes this step's
	// own arrived cohort.
	if s.sampler != nil {
		for p := 0; p < t.NumPorts; p++ {
			dst := t.Target(i, p)
			for f := 0; f < t.NumFlows; f++ {
				amt := s.sentScratch.Get(i, p, f)
				if amt == 0 {
					continue
				}
				s.sampler.OnPortTransfer(i, f, p, dst, amt, s.currentStep, s.buf, s.choose)
			}
		}
	}

	// 7. ingress injection
	for f, flow := range flows {
		amount := flow.Amount
		if s.IngressAmount != nil {
			amount = s.IngressAmount(i, f)
		}
		if amount == 0 {
			continue
		}
		c := s.choose(i, flow.Ingress, f)
		s.buf.Add(c.Phase, c.Port, f, amount)
		if s.sampler != nil {
			s.sampler.OnIngress(f, amount, i, s.currentStep, s.buf, s.choose)
		}
	}

	// 8. overflow check
	for p := 0; p < t.NumPorts; p++ {
		if s.buf.TotalPortBuffered(p) > t.Capacity(p) {
			s.didOverflow = true
		}
	}

	if s.trace != nil {
		s.trace.Event(s.currentStep, "step", map[string]any{"phase": i, "overflow": s.didOverflow})
	}

	// 9. advance
	s.currentPhase = (s.currentPhase + 1) % t.NumPhases
	s.currentStep++
}

// reschedMove records one migrated bucket for the sampler's bookkeeping.
type reschedMove struct {
	port, flow        int
	before            int
	newPhase, newPort int
}

// reschedule moves every nonempty (port, flow) bucket owned by phase's
// ports to wherever the scheduler now says it should sit, via a staged
// delta buffer so that no migration observes another migration's partial
// update, per spec.md §4.F's reschedule(phase).
func (s *Simulator) reschedule(phase int) {
	t := s.topology
	s.recvScratch.Fill(0) // reused as the staged delta buffer; step 3/4 are done using it for this phase already
	delta := s.recvScratch

	moves := s.moveScratch[:0]
	for p := 0; p < t.NumPorts; p++ {
		owner := t.Owner(p)
		for f := 0; f < t.NumFlows; f++ {
			amt := s.buf.Get(phase, p, f)
			if amt == 0 {
				continue
			}
			c := s.choose(phase, owner, f)
			if c.Port == p && c.Phase == phase {
				continue
			}
			before := s.buf.Get(c.Phase, c.Port, f)
			delta.Add(phase, p, f, -amt)
			delta.Add(c.Phase, c.Port, f, amt)
			moves = append(moves, reschedMove{port: p, flow: f, before: before, newPhase: c.Phase, newPort: c.Port})
		}
	}
	s.moveScratch = moves

	for j := 0; j < t.NumPhases; j++ {
		for p := 0; p < t.NumPorts; p++ {
			for f := 0; f < t.NumFlows; f++ {
				if d := delta.Get(j, p, f); d != 0 {
					s.buf.Add(j, p, f, d)
				}
			}
		}
	}

	if s.sampler != nil {
		for _, m := range moves {
			s.sampler.OnReschedule(m.flow, phase, m.port, m.before, m.newPhase, m.newPort)
		}
	}
}

// CurrentPhase returns the phase the next Step will execute.
func (s *Simulator) CurrentPhase() int { return s.currentPhase }

// CurrentStep returns the monotone step counter.
func (s *Simulator) CurrentStep() int { return s.currentStep }

// DidOverflow reports whether any port has ever exceeded capacity since
// the last Begin.
func (s *Simulator) DidOverflow() bool { return s.didOverflow }

// Buffers exposes the live buffer state, e.g. for a capacity-aware
// scheduler or a host's pushBuffers mirroring (spec.md §6).
func (s *Simulator) Buffers() *Buffers { return s.buf }

// LastSent returns the most recent step's aggregate send count for port.
func (s *Simulator) LastSent(port int) int { return s.lastSent[port] }

// MaxSendFromPortInPhase returns port's running high-water mark of
// per-step aggregate sends, recovered from model_declarations.c's
// maxSendFromPortInPhase.
func (s *Simulator) MaxSendFromPortInPhase(port int) int { return s.maxSendFromPortInPhase[port] }

// PacketsInNetwork returns the total packet count buffered anywhere,
// recovered from ext.hpp's extGetPacketsInNetwork.
func (s *Simulator) PacketsInNetwork() int {
	total := 0
	for phase := 0; phase < s.topology.NumPhases; phase++ {
		for p := 0; p < s.topology.NumPorts; p++ {
			total += s.buf.PortBuffered(phase, p)
		}
	}
	return total
}

// PacketsAtNode returns the total packet count buffered in ports owned by
// node, recovered from model_declarations.c's packetsAtNode.
func (s *Simulator) PacketsAtNode(node int) int {
	total := 0
	for _, p := range s.topology.OwnedPorts(node) {
		total += s.buf.TotalPortBuffered(p)
	}
	return total
}

// Sampler exposes the attached Sampler, or nil if none was enabled.
func (s *Simulator) Sampler() *Sampler { return s.sampler }
