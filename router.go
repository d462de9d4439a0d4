package rossa

import (
	"math"

	"slices"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Choice is a Router/Scheduler output: which port to place a packet on, and
// which phase slot to commit it for.
type Choice struct {
	Port, Phase int
}

// ChoiceTable is the per-(phase,node) ranked, port-diverse candidate list a
// Router produces for one egress node, per spec.md §3's "Choice table".
type ChoiceTable struct {
	numPhases, numNodes int
	entries             [][]Choice // row-major phase*numNodes+node
}

func newChoiceTable(numPhases, numNodes int) *ChoiceTable {
	return &ChoiceTable{
		numPhases: numPhases,
		numNodes:  numNodes,
		entries:   make([][]Choice, numPhases*numNodes),
	}
}

// Candidates returns the ranked candidate list for (phase, node), possibly
// empty if the Router found no route (spec.md's UnreachableEgress case).
func (ct *ChoiceTable) Candidates(phase, node int) []Choice {
	return ct.entries[phase*ct.numNodes+node]
}

func (ct *ChoiceTable) set(phase, node int, choices []Choice) {
	ct.entries[phase*ct.numNodes+node] = choices
}

// reverseWeighted wraps a TemporalGraph's reverse graph with a
// policy-scored Weight so gonum's Dijkstra can be run under either cost
// policy without rebuilding the underlying graph structure; the graph
// structure is built once by TemporalGraph and the raw (time, hop, delay)
// TEdge for every directed pair lives in tg.edgeCost, scored here on demand.
type reverseWeighted struct {
	*simple.WeightedDirectedGraph
	tg     *TemporalGraph
	policy CostPolicy
}

// Weight shadows the embedded graph's own Weight method: xid->yid in the
// reverse graph corresponds to the original forward edge yid->xid, whose
// TEdge is recorded under that original direction in tg.edgeCost.
func (w reverseWeighted) Weight(xid, yid int64) (float64, bool) {
	e, ok := w.tg.EdgeCost(yid, xid)
	if !ok {
		return math.Inf(1), false
	}
	return e.Cost(w.policy), true
}

// Router runs reverse Dijkstra from an egress node's collector vertex and
// derives, for every (phase, node), up to K port-diverse next-hop choices
// ranked by ascending cost-to-egress, per spec.md §4.C.
type Router struct {
	tg     *TemporalGraph
	policy CostPolicy
	k      int
}

// NewRouter constructs a Router bound to tg, scoring candidates under
// policy and retaining up to k port-diverse choices per (phase, node).
func NewRouter(tg *TemporalGraph, policy CostPolicy, k int) *Router {
	return &Router{tg: tg, policy: policy, k: k}
}

// candidate is one out-edge of a PhaseNode that lands on a PhasePort,
// scored by candidate_cost = edge_cost + d[target].
type candidate struct {
	port, phase int
	cost        float64
}

// Compute builds the choice table for routing to egress.
func (r *Router) Compute(egress int) *ChoiceTable {
	tg := r.tg
	t := tg.topology

	wg := reverseWeighted{WeightedDirectedGraph: tg.reverse, tg: tg, policy: r.policy}
	destID := tg.nodeID(egress)
	shortest := path.DijkstraFrom(tg.reverse.Node(destID), wg)

	table := newChoiceTable(t.NumPhases, t.NumNodes)

	for phase := 0; phase < t.NumPhases; phase++ {
		for node := 0; node < t.NumNodes; node++ {
			pnID := tg.phaseNodeID(phase, node)

			var cands []candidate
			for _, succID := range tg.ForwardOutIDs(pnID) {
				v, ok := tg.vertices[succID]
				if !ok {
					continue
				}
				pp, isPort := v.(PhasePortVertex)
				if !isPort {
					continue
				}
				edge, _ := tg.EdgeCost(pnID, succID)
				d := shortest.WeightTo(succID)
				if math.IsInf(d, 1) {
					continue
				}
				cands = append(cands, candidate{port: pp.Port, phase: pp.Phase, cost: edge.Cost(r.policy) + d})
			}

			// Stable-sort by ascending cost, per spec.md §4.C; ForwardOutIDs
			// walks gonum's internal node map, whose iteration order is
			// randomized per process, so the (port, phase) tie-break below
			// is what actually makes candidate selection deterministic
			// across runs, not insertion order.
			slices.SortStableFunc(cands, func(a, b candidate) int {
				if a.cost != b.cost {
					if a.cost < b.cost {
						return -1
					}
					return 1
				}
				if a.port != b.port {
					return a.port - b.port
				}
				return a.phase - b.phase
			})

			choices := make([]Choice, 0, r.k)
			seenPorts := make([]int, 0, r.k)
			for _, c := range cands {
				if len(choices) >= r.k {
					break
				}
				if slices.Contains(seenPorts, c.port) {
					continue
				}
				choices = append(choices, Choice{Port: c.port, Phase: c.phase})
				seenPorts = append(seenPorts, c.port)
			}
			table.set(phase, node, choices)
		}
	}
	return table
}
