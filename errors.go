package rossa

import "fmt"

// TopologyError reports a structural problem found while validating a
// Topology or a Flow set: a self-loop (target[phase][port] == owner[port])
// or a self-flow (ingress == egress).
type TopologyError struct {
	Reason string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("topology error: %s", e.Reason)
}

// SchedulerError reports a scheduler choice whose port is not owned by the
// node that asked for it. Under a correctly built Router this should never
// happen; when it does it is a programmer error in the Router or the
// Topology, not a condition a caller can usefully recover from.
type SchedulerError struct {
	Phase, Node, Flow, Port int
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error: choice (phase=%d, node=%d, flow=%d) returned port %d not owned by node %d",
		e.Phase, e.Node, e.Flow, e.Port, e.Node)
}

// UnreachableEgressError reports that the Router found no PhasePort
// successor for some (phase, node) pair when computing a choice table for
// the given egress node. Callers may treat this as informational; the
// Scheduler variants each define their own recovery (see scheduler.go).
type UnreachableEgressError struct {
	Egress, Phase, Node int
}

func (e *UnreachableEgressError) Error() string {
	return fmt.Sprintf("no route from node %d in phase %d to egress %d", e.Node, e.Phase, e.Egress)
}
