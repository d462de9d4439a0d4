package rossa

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/graph/simple"
)

// VertexKind tags which of the three disjoint vertex families a TemporalGraph
// vertex belongs to. Go has no sum type, so we approximate the teacher's
// std::variant<TNode, TPhaseNode, TPort> with an interface plus a type
// switch wherever code needs to branch on vertex kind (see Router).
type VertexKind int

const (
	KindNode VertexKind = iota
	KindPhaseNode
	KindPhasePort
)

// Vertex is implemented by NodeVertex, PhaseNodeVertex and PhasePortVertex.
// Callers branch on concrete type via a type switch rather than inspecting
// Kind directly when they need the vertex's fields; Kind is kept for quick
// filtering (e.g. "is this a PhasePort") without a type assertion.
type Vertex interface {
	Kind() VertexKind
}

// NodeVertex is the once-per-node collector used only as a Dijkstra sink.
type NodeVertex struct{ Node int }

func (NodeVertex) Kind() VertexKind { return KindNode }

// PhaseNodeVertex is "packets owned by Node, committed for phase slot Phase".
type PhaseNodeVertex struct{ Phase, Node int }

func (PhaseNodeVertex) Kind() VertexKind { return KindPhaseNode }

// PhasePortVertex is "packets queued in Port, to be transmitted during Phase".
type PhasePortVertex struct{ Phase, Port int }

func (PhasePortVertex) Kind() VertexKind { return KindPhasePort }

// TEdge is the weight-bearing payload spec.md §3 assigns to every edge:
// elapsed phases (time), hop count (hop), and a wait count (delay) that the
// current cost policies do not use directly but which is retained for
// diagnostics.
type TEdge struct {
	Time, Hop, Delay int
}

// Cost reduces a TEdge to the scalar policy.Cost uses for Dijkstra, per
// spec.md §3's two cost policies.
func (e TEdge) Cost(policy CostPolicy) float64 {
	if policy == FewestHops {
		return float64(10000*e.Hop + e.Time)
	}
	return float64(10000*e.Time + e.Hop)
}

// TemporalGraph is the layered graph over {Node, PhaseNode, PhasePort}
// vertices described in spec.md §3/§4.B. It is built once from a Topology
// and is read-only thereafter. Both a forward and a mirrored reverse graph
// are kept: the forward graph is what Router enumerates out-edges from for
// a given PhaseNode, and the reverse graph is what Router's Dijkstra runs
// over (cost-to-egress from every vertex, rooted at the egress's collector).
type TemporalGraph struct {
	topology *Topology

	forward *simple.WeightedDirectedGraph
	reverse *simple.WeightedDirectedGraph

	vertices map[int64]Vertex
	edgeCost map[[2]int64]TEdge // forward (from,to) -> TEdge; reverse-graph lookups swap the pair
}

// NewTemporalGraph constructs the layered graph for topology, adding all
// transfer, enqueue and collector edges per spec.md §3.
func NewTemporalGraph(topology *Topology) *TemporalGraph {
	tg := &TemporalGraph{
		topology: topology,
		forward:  simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		reverse:  simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		vertices: make(map[int64]Vertex),
		edgeCost: make(map[[2]int64]TEdge),
	}
	tg.createVertices()
	tg.createTransfers()
	tg.createCollectorEdges()
	return tg
}

// PhaseAdd computes (phase + add) mod NumPhases.
func (tg *TemporalGraph) PhaseAdd(phase, add int) int {
	p := tg.topology.NumPhases
	return ((phase+add)%p + p) % p
}

func (tg *TemporalGraph) nodeID(node int) int64 {
	return int64(node)
}

func (tg *TemporalGraph) phaseNodeID(phase, node int) int64 {
	n := tg.topology.NumNodes
	return int64(n) + int64(phase*n+node)
}

func (tg *TemporalGraph) phasePortID(phase, port int) int64 {
	n, q := tg.topology.NumNodes, tg.topology.NumPorts
	return int64(n) + int64(tg.topology.NumPhases*n) + int64(phase*q+port)
}

// VertexAt returns the vertex descriptor for the given graph id, or nil if
// none is registered.
func (tg *TemporalGraph) VertexAt(id int64) Vertex {
	return tg.vertices[id]
}

func (tg *TemporalGraph) addVertex(id int64, v Vertex) {
	tg.vertices[id] = v
	tg.forward.AddNode(simple.Node(id))
	tg.reverse.AddNode(simple.Node(id))
}

func (tg *TemporalGraph) createVertices() {
	t := tg.topology
	for n := 0; n < t.NumNodes; n++ {
		tg.addVertex(tg.nodeID(n), NodeVertex{Node: n})
	}
	for phase := 0; phase < t.NumPhases; phase++ {
		for n := 0; n < t.NumNodes; n++ {
			tg.addVertex(tg.phaseNodeID(phase, n), PhaseNodeVertex{Phase: phase, Node: n})
		}
	}
	for phase := 0; phase < t.NumPhases; phase++ {
		for p := 0; p < t.NumPorts; p++ {
			tg.addVertex(tg.phasePortID(phase, p), PhasePortVertex{Phase: phase, Port: p})
		}
	}
}

func (tg *TemporalGraph) addEdge(from, to int64, edge TEdge) {
	tg.forward.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: 1})
	tg.reverse.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(to), T: simple.Node(from), W: 1})
	tg.edgeCost[[2]int64{from, to}] = edge
}

// createTransfers adds both families of non-collector edge: PhasePort(φ,p)
// -> PhaseNode(φ+1, target[φ][p]) "transfer" edges, weight (1,1,0); and
// PhaseNode(φ, owner[p]) -> PhasePort(φ+w, p) "enqueue" edges for every wait
// w in 1..NumPhases, weight (w,0,1).
func (tg *TemporalGraph) createTransfers() {
	t := tg.topology
	for phase := 0; phase < t.NumPhases; phase++ {
		for port := 0; port < t.NumPorts; port++ {
			target := t.Target(phase, port)
			from := tg.phasePortID(phase, port)
			arrivePhase := tg.PhaseAdd(phase, 1)
			to := tg.phaseNodeID(arrivePhase, target)
			tg.addEdge(from, to, TEdge{Time: 1, Hop: 1, Delay: 0})
		}
	}
	for phase := 0; phase < t.NumPhases; phase++ {
		for port := 0; port < t.NumPorts; port++ {
			owner := t.Owner(port)
			from := tg.phaseNodeID(phase, owner)
			for wait := 1; wait <= t.NumPhases; wait++ {
				targetPhase := tg.PhaseAdd(phase, wait)
				to := tg.phasePortID(targetPhase, port)
				tg.addEdge(from, to, TEdge{Time: wait, Hop: 0, Delay: 1})
			}
		}
	}
}

// createCollectorEdges adds PhaseNode(φ,n) -> Node(n), weight (0,0,0),
// absorbing every phase's path at the egress node.
func (tg *TemporalGraph) createCollectorEdges() {
	t := tg.topology
	for phase := 0; phase < t.NumPhases; phase++ {
		for n := 0; n < t.NumNodes; n++ {
			from := tg.phaseNodeID(phase, n)
			to := tg.nodeID(n)
			tg.addEdge(from, to, TEdge{})
		}
	}
}

// EdgeCost returns the TEdge recorded for the directed edge (from, to).
func (tg *TemporalGraph) EdgeCost(from, to int64) (TEdge, bool) {
	e, ok := tg.edgeCost[[2]int64{from, to}]
	return e, ok
}

// ForwardOutIDs returns the ids of from's forward out-neighbours.
func (tg *TemporalGraph) ForwardOutIDs(from int64) []int64 {
	it := tg.forward.From(from)
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	return ids
}

// dotLabel mirrors the original's DotAbbreviation: N(n) / PN(phase,node) /
// PP(phase,port).
func dotLabel(v Vertex) string {
	switch vv := v.(type) {
	case NodeVertex:
		return fmt.Sprintf("N(%d)", vv.Node)
	case PhaseNodeVertex:
		return fmt.Sprintf("PN(%d,%d)", vv.Phase, vv.Node)
	case PhasePortVertex:
		return fmt.Sprintf("PP(%d,%d)", vv.Phase, vv.Port)
	default:
		return "?"
	}
}

// WriteDOT emits a textual Graphviz DOT representation of the forward
// graph, for diagnostics. Rendering the text to an image is an external
// collaborator's job (spec.md §1); this only produces the text.
func (tg *TemporalGraph) WriteDOT(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph TemporalGraph {\n"); err != nil {
		return err
	}
	ids := make([]int64, 0, len(tg.vertices))
	for id := range tg.vertices {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "  %d [label=\"%s\"];\n", id, dotLabel(tg.vertices[id])); err != nil {
			return err
		}
	}
	for pair, edge := range tg.edgeCost {
		if _, err := fmt.Fprintf(w, "  %d -> %d [label=\"t=%d,h=%d\"];\n", pair[0], pair[1], edge.Time, edge.Hop); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}
