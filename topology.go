package rossa

import "fmt"

// Topology is the static, immutable-after-Setup description of a
// time-expanded network: which node owns each port, which node each port
// delivers to during a given phase, and the port's capacity and bandwidth.
//
// Ingestion follows the order spec.md §6 fixes: NewTopology (the sizes),
// PortCapacities, PortBandwidths, PushPortOwners, PushFlow (repeated),
// PushTopology (repeated), then Setup. No ingestion call is valid after Setup succeeds.
type Topology struct {
	NumPhases int
	NumNodes  int
	NumFlows  int
	NumPorts  int

	// capacity[port], bandwidth[port]
	capacity  []int
	bandwidth []int

	// owner[port] -> node
	owner []int

	// target[phase][port] -> node, row-major phase*NumPorts+port
	target []int

	flows []Flow

	sealed bool
}

// Flow is a (ingress, egress, amount) triple: a stream injected at ingress,
// delivered at egress, at a fixed per-phase packet amount.
type Flow struct {
	Ingress int
	Egress  int
	Amount  int
}

// NewTopology begins ingestion for a Topology sized for P phases, N nodes,
// F flows and Q ports. Call the Push*/basic setter methods, then Setup.
func NewTopology(numPhases, numNodes, numFlows, numPorts int) *Topology {
	return &Topology{
		NumPhases: numPhases,
		NumNodes:  numNodes,
		NumFlows:  numFlows,
		NumPorts:  numPorts,
		capacity:  make([]int, numPorts),
		bandwidth: make([]int, numPorts),
		owner:     make([]int, numPorts),
		target:    make([]int, numPhases*numPorts),
		flows:     make([]Flow, 0, numFlows),
	}
}

func (t *Topology) requireUnsealed(op string) {
	if t.sealed {
		panic(fmt.Sprintf("rossa: %s called after Setup; no ingestion is permitted once sealed", op))
	}
}

// PortCapacities records capacity[port] for every port, in port order.
func (t *Topology) PortCapacities(capacities []int) {
	t.requireUnsealed("PortCapacities")
	copy(t.capacity, capacities)
}

// PortBandwidths records bandwidth[port] for every port, in port order.
func (t *Topology) PortBandwidths(bandwidths []int) {
	t.requireUnsealed("PortBandwidths")
	copy(t.bandwidth, bandwidths)
}

// PushPortOwners records owner[port] for every port, in port order.
func (t *Topology) PushPortOwners(owners []int) {
	t.requireUnsealed("PushPortOwners")
	copy(t.owner, owners)
}

// PushFlow appends the i-th flow. Flows must be pushed in order 0..NumFlows-1
// as spec.md §6 specifies; an index other than the next one panics.
func (t *Topology) PushFlow(i, ingress, egress, amount int) {
	t.requireUnsealed("PushFlow")
	if i != len(t.flows) {
		panic(fmt.Sprintf("rossa: PushFlow called out of order: want index %d, got %d", len(t.flows), i))
	}
	t.flows = append(t.flows, Flow{Ingress: ingress, Egress: egress, Amount: amount})
}

// PushTopology records target[phase][port] for every port, for one phase.
func (t *Topology) PushTopology(phase int, targets []int) {
	t.requireUnsealed("PushTopology")
	copy(t.target[phase*t.NumPorts:(phase+1)*t.NumPorts], targets)
}

// Owner returns the node that owns the given port.
func (t *Topology) Owner(port int) int { return t.owner[port] }

// Target returns the node that the given port delivers to during phase.
func (t *Topology) Target(phase, port int) int { return t.target[phase*t.NumPorts+port] }

// Capacity returns the capacity of the given port.
func (t *Topology) Capacity(port int) int { return t.capacity[port] }

// Bandwidth returns the bandwidth of the given port.
func (t *Topology) Bandwidth(port int) int { return t.bandwidth[port] }

// Flows returns the flow set pushed during ingestion.
func (t *Topology) Flows() []Flow { return t.flows }

// OwnedPorts returns, in ascending order, the ports owned by node.
func (t *Topology) OwnedPorts(node int) []int {
	ports := make([]int, 0, t.NumPorts/t.NumNodes+1)
	for p := 0; p < t.NumPorts; p++ {
		if t.owner[p] == node {
			ports = append(ports, p)
		}
	}
	return ports
}

// Setup validates the ingested topology and flow set and seals the
// Topology against further ingestion. It rejects self-loops
// (target[phase][port] == owner[port]) and self-flows (ingress == egress),
// per spec.md §4.A/§4.F's verifyTopology.
func (t *Topology) Setup() error {
	if err := t.verify(); err != nil {
		return err
	}
	t.sealed = true
	return nil
}

func (t *Topology) verify() error {
	for phase := 0; phase < t.NumPhases; phase++ {
		for port := 0; port < t.NumPorts; port++ {
			if t.Target(phase, port) == t.Owner(port) {
				return &TopologyError{Reason: fmt.Sprintf(
					"port %d targets its own owner node %d in phase %d", port, t.Owner(port), phase)}
			}
		}
	}
	for i, f := range t.flows {
		if f.Ingress == f.Egress {
			return &TopologyError{Reason: fmt.Sprintf(
				"flow %d has ingress == egress == %d", i, f.Ingress)}
		}
	}
	return nil
}
