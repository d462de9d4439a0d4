package rossa

// buildRingTopology constructs a P-phase, N-node test topology with two
// ports per node (Q = 2N). Port p is owned by node p/2 and, at every
// phase, targets node (owner(p)+1+phase) mod N — never the owner itself as
// long as P < N, since the offset 1+phase never reaches a multiple of N.
func buildRingTopology(numPhases, numNodes int, flows []Flow) *Topology {
	numPorts := 2 * numNodes
	top := NewTopology(numPhases, numNodes, len(flows), numPorts)

	capacities := make([]int, numPorts)
	bandwidths := make([]int, numPorts)
	owners := make([]int, numPorts)
	for p := 0; p < numPorts; p++ {
		capacities[p] = 50
		bandwidths[p] = 10
		owners[p] = p / 2
	}
	top.PortCapacities(capacities)
	top.PortBandwidths(bandwidths)
	top.PushPortOwners(owners)

	for i, f := range flows {
		top.PushFlow(i, f.Ingress, f.Egress, f.Amount)
	}

	for phase := 0; phase < numPhases; phase++ {
		targets := make([]int, numPorts)
		for p := 0; p < numPorts; p++ {
			targets[p] = (owners[p] + 1 + phase) % numNodes
		}
		top.PushTopology(phase, targets)
	}
	return top
}
